package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile yields the true attitude (degrees) and body rates (°/s) at now.
type Profile interface {
	Attitude(now time.Time) (roll, pitch, yaw float64, rates [3]float64)
}

// ScenarioScript is a keyframed maneuver for the simulated board.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 10s
//	loop: true
//	keyframes:
//	  - t: 0s
//	    roll_deg: 0
//	    pitch_deg: 0
//	    yaw_deg: 0
//	  - t: 2s
//	    roll_deg: 20
//
// Keyframes must use non-decreasing t values.
type ScenarioScript struct {
	Version   int           `yaml:"version"`
	Duration  time.Duration `yaml:"duration"`
	Loop      bool          `yaml:"loop"`
	Keyframes []Keyframe    `yaml:"keyframes"`
}

// Keyframe is a time-stamped attitude.
type Keyframe struct {
	T        time.Duration `yaml:"t"`
	RollDeg  float64       `yaml:"roll_deg"`
	PitchDeg float64       `yaml:"pitch_deg"`
	YawDeg   float64       `yaml:"yaw_deg"`
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// Scenario is the validated runtime form. It is a Profile once started.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
	start    time.Time
}

func NewScenario(script ScenarioScript, start time.Time) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframes is required")
	}
	for i, kf := range script.Keyframes {
		if kf.T < 0 {
			return nil, fmt.Errorf("keyframes[%d].t must be >= 0", i)
		}
		if i > 0 && kf.T < script.Keyframes[i-1].T {
			return nil, fmt.Errorf("keyframes must be sorted by t (index %d)", i)
		}
	}
	dur := script.Duration
	if dur <= 0 {
		dur = script.Keyframes[len(script.Keyframes)-1].T
	}
	if dur <= 0 && script.Loop {
		return nil, fmt.Errorf("duration is required for a looping scenario")
	}
	return &Scenario{script: script, duration: dur, start: start}, nil
}

func (s *Scenario) Duration() time.Duration { return s.duration }

func (s *Scenario) Attitude(now time.Time) (roll, pitch, yaw float64, rates [3]float64) {
	return s.StateAt(now.Sub(s.start))
}

// StateAt interpolates the attitude at elapsed. Rates are the slope of the
// active segment and are zero outside the keyframe span.
func (s *Scenario) StateAt(elapsed time.Duration) (roll, pitch, yaw float64, rates [3]float64) {
	if elapsed < 0 {
		elapsed = 0
	}
	if s.duration > 0 {
		if s.script.Loop {
			elapsed %= s.duration
		} else if elapsed > s.duration {
			elapsed = s.duration
		}
	}

	k0, k1, alpha := selectSegment(s.script.Keyframes, elapsed)
	roll = lerp(k0.RollDeg, k1.RollDeg, alpha)
	pitch = lerp(k0.PitchDeg, k1.PitchDeg, alpha)
	dyaw := angleDiffDeg(k0.YawDeg, k1.YawDeg)
	yaw = wrap180(k0.YawDeg + dyaw*alpha)

	if dt := (k1.T - k0.T).Seconds(); dt > 0 {
		rates = [3]float64{
			(k1.RollDeg - k0.RollDeg) / dt,
			(k1.PitchDeg - k0.PitchDeg) / dt,
			dyaw / dt,
		}
	}
	return roll, pitch, yaw, rates
}

func selectSegment(kfs []Keyframe, t time.Duration) (Keyframe, Keyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// angleDiffDeg returns the shortest signed turn from a to b.
func angleDiffDeg(a, b float64) float64 {
	return wrap180(b - a)
}

func wrap180(x float64) float64 {
	for x > 180 {
		x -= 360
	}
	for x <= -180 {
		x += 360
	}
	return x
}
