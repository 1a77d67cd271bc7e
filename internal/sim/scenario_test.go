package sim

import (
	"math"
	"testing"
	"time"
)

const script = `
version: 1
loop: true
keyframes:
  - t: 0s
    roll_deg: 0
    yaw_deg: 170
  - t: 2s
    roll_deg: 20
    pitch_deg: -10
    yaw_deg: -170
`

func TestScenario_ParseAndInterpolate(t *testing.T) {
	s, err := ParseScenarioScriptYAML([]byte(script))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sc, err := NewScenario(s, start)
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	if sc.Duration() != 2*time.Second {
		t.Fatalf("duration=%v want 2s", sc.Duration())
	}

	roll, pitch, yaw, rates := sc.Attitude(start.Add(time.Second))
	if math.Abs(roll-10) > 1e-9 || math.Abs(pitch+5) > 1e-9 {
		t.Fatalf("roll=%v pitch=%v", roll, pitch)
	}
	// Shortest path from 170 to -170 crosses 180.
	if math.Abs(yaw-180) > 1e-9 {
		t.Fatalf("yaw=%v want 180", yaw)
	}
	if math.Abs(rates[0]-10) > 1e-9 || math.Abs(rates[2]-10) > 1e-9 {
		t.Fatalf("rates=%v", rates)
	}

	// Loop wraps back to the first keyframe.
	roll, _, _, _ = sc.Attitude(start.Add(2*time.Second + 500*time.Millisecond))
	if math.Abs(roll-5) > 1e-9 {
		t.Fatalf("looped roll=%v want 5", roll)
	}
}

func TestNewScenario_Validation(t *testing.T) {
	if _, err := NewScenario(ScenarioScript{}, time.Time{}); err == nil {
		t.Fatalf("expected error for missing keyframes")
	}
	bad := ScenarioScript{Keyframes: []Keyframe{{T: 2 * time.Second}, {T: time.Second}}}
	if _, err := NewScenario(bad, time.Time{}); err == nil {
		t.Fatalf("expected error for unsorted keyframes")
	}
	if _, err := NewScenario(ScenarioScript{Version: 2, Keyframes: []Keyframe{{}}}, time.Time{}); err == nil {
		t.Fatalf("expected error for version")
	}
}
