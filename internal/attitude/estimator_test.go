package attitude

import (
	"math"
	"testing"

	"github.com/pershinmr/skyalpha/internal/sampler"
)

func approx(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func TestTiltAngles(t *testing.T) {
	cases := []struct {
		name        string
		a           sampler.Vector
		pitch, roll float32
	}{
		{name: "Level", a: sampler.Vector{Z: -256}, pitch: 0, roll: 0},
		{name: "Roll45", a: sampler.Vector{Y: 181, Z: -181}, pitch: 0, roll: 45},
		{name: "PitchNose", a: sampler.Vector{X: 181, Z: -181}, pitch: -45, roll: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, r := TiltAngles(tc.a)
			if !approx(p, tc.pitch, 0.01) || !approx(r, tc.roll, 0.01) {
				t.Fatalf("pitch=%v roll=%v want %v %v", p, r, tc.pitch, tc.roll)
			}
		})
	}
}

func TestHeading_LevelUsesXY(t *testing.T) {
	var zero [3]float32
	// Level: yx = cx, yy = cz. Pointing the field along +X gives 0°.
	if h := Heading(sampler.Vector{X: 200}, zero, 0, 0); !approx(h, 0, 0.01) {
		t.Fatalf("heading=%v want 0", h)
	}
	if h := Heading(sampler.Vector{X: 100, Z: 100}, zero, 0, 0); !approx(h, -45, 0.01) {
		t.Fatalf("heading=%v want -45", h)
	}
}

func TestHeading_SubtractsOffset(t *testing.T) {
	off := DefaultCompassOffset
	m := sampler.Vector{X: 200 + off[0], Y: off[1], Z: off[2]}
	if h := Heading(m, off, 0, 0); !approx(h, 0, 0.01) {
		t.Fatalf("heading=%v want 0", h)
	}
}

func TestStep_ConvergesToTilt(t *testing.T) {
	e := New(Config{})
	snap := sampler.Snapshot{
		Accel: sampler.Vector{Y: 181, Z: -181},
		Mag:   sampler.Vector{X: 300 + DefaultCompassOffset[0], Y: DefaultCompassOffset[1], Z: DefaultCompassOffset[2]},
	}
	e.cfg.CompassOffset = DefaultCompassOffset

	var est Estimate
	for i := 0; i < 2000; i++ {
		est = e.Step(snap)
	}
	if !approx(est.AccRoll, 45, 0.01) {
		t.Fatalf("accRoll=%v want 45", est.AccRoll)
	}
	if !approx(est.Roll, 45, 1) {
		t.Fatalf("roll=%v want ~45", est.Roll)
	}
	if !approx(est.Pitch, 0, 0.5) {
		t.Fatalf("pitch=%v want ~0", est.Pitch)
	}
}

func TestStep_ScalesGyroRate(t *testing.T) {
	e := New(Config{})
	est := e.Step(sampler.Snapshot{Accel: sampler.Vector{Z: -256}, Gyro: sampler.Vector{X: 147, Y: -29.4, Z: 0}})
	if !approx(est.Rate[0], 10, 1e-4) || !approx(est.Rate[1], -2, 1e-4) {
		t.Fatalf("rate=%v want [10 -2 0]", est.Rate)
	}
}

func TestReset(t *testing.T) {
	e := New(Config{})
	e.Step(sampler.Snapshot{Accel: sampler.Vector{Y: 100, Z: -100}})
	e.Reset()
	if e.roll.Angle() != 0 || e.pitch.Angle() != 0 || e.yaw.Angle() != 0 {
		t.Fatalf("expected filters reset")
	}
}
