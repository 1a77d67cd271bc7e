package control

import (
	"math"
	"testing"

	"github.com/pershinmr/skyalpha/internal/attitude"
)

func approx(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func TestAxisLoop_LawAndIntegral(t *testing.T) {
	a := newAxisLoop(Gains{Kp: 0.01, Kd: 0.01, Ki: 0.001}, 0.01)

	// err = -2, rate = 5: 0.01*-2 + 0.01*(-200 - 0.05) + 0.001*-2
	u := a.Update(2, 5)
	want := float32(0.01*-2 + 0.01*(-200-0.05) + 0.001*-2)
	if !approx(u, want, 1e-4) {
		t.Fatalf("u=%v want %v", u, want)
	}
	if a.integral != -2 {
		t.Fatalf("integral=%v want -2", a.integral)
	}
	a.Update(2, 0)
	if a.integral != -4 {
		t.Fatalf("integral=%v want -4", a.integral)
	}
	a.Set(0)
	if a.integral != 0 {
		t.Fatalf("integral=%v want 0 after Set", a.integral)
	}
}

func TestUpdate_MixingDisabledBroadcastsTorque(t *testing.T) {
	c := New(DefaultConfig())
	out := c.Update(attitude.Estimate{Roll: 10, Pitch: -5}, 42)
	for i, v := range out.Torque {
		if v != 42 {
			t.Fatalf("motor %d torque=%v want 42", i, v)
		}
	}
	if out.URoll >= 0 || out.UPitch <= 0 {
		t.Fatalf("uRoll=%v uPitch=%v want opposite sign of the attitude error", out.URoll, out.UPitch)
	}
}

func TestMix_XConfiguration(t *testing.T) {
	got := Mix(1, 2, 50, true)
	want := [Motors]float32{49, 53, 47, 51}
	if got != want {
		t.Fatalf("mix=%v want %v", got, want)
	}
}

func TestUpdate_ClampProperty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AxisMixing = true
	c := New(cfg)

	inputs := []float32{-1e6, -100, -1, 0, 0.5, 50, 99.9, 100, 101, 255, 1e6, float32(math.NaN())}
	angles := []float32{-180, -45, 0, 30, 180}
	for _, tq := range inputs {
		for _, ang := range angles {
			out := c.Update(attitude.Estimate{Roll: ang, Pitch: -ang, Yaw: ang, Rate: [3]float32{ang, ang, ang}}, tq)
			for i, v := range out.Torque {
				if !(v >= 0 && v <= 100) {
					t.Fatalf("torque=%v angle=%v motor %d=%v outside [0,100]", tq, ang, i, v)
				}
			}
		}
	}
}

func TestReset_ClearsIntegral(t *testing.T) {
	c := New(DefaultConfig())
	c.Update(attitude.Estimate{Roll: 3}, 0)
	c.Reset()
	if c.roll.integral != 0 {
		t.Fatalf("integral=%v want 0", c.roll.integral)
	}
}
