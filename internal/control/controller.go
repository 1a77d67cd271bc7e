// Package control turns the attitude estimate and the operator torque command
// into four motor torques and their PWM pulse widths.
package control

import (
	"github.com/pershinmr/skyalpha/internal/attitude"
)

const (
	DefaultKp        = 0.01
	DefaultKd        = 0.01
	DefaultKi        = 0.001
	DefaultDT        = 0.01
	DefaultTorqueMax = 100
	Motors           = 4
)

type Gains struct {
	Kp, Kd, Ki float32
}

type Config struct {
	Gains Gains
	// DT is the control period in seconds.
	DT float32
	// AxisMixing adds the roll/pitch corrections to the common torque. When
	// false every motor receives the common torque only.
	AxisMixing bool
	TorqueMax  float32
}

func DefaultConfig() Config {
	return Config{
		Gains:     Gains{Kp: DefaultKp, Kd: DefaultKd, Ki: DefaultKi},
		DT:        DefaultDT,
		TorqueMax: DefaultTorqueMax,
	}
}

// Output is the result of one control tick.
type Output struct {
	URoll, UPitch, UYaw float32
	// Torque per motor, clamped to [0, TorqueMax].
	Torque [Motors]float32
}

// Controller holds level-hold state for roll, pitch and yaw. The setpoint is
// always zero and the integral accumulators start at zero.
type Controller struct {
	cfg Config

	roll, pitch, yaw *axisLoop
}

func New(cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.DT <= 0 {
		cfg.DT = def.DT
	}
	if cfg.TorqueMax <= 0 {
		cfg.TorqueMax = def.TorqueMax
	}
	return &Controller{
		cfg:   cfg,
		roll:  newAxisLoop(cfg.Gains, cfg.DT),
		pitch: newAxisLoop(cfg.Gains, cfg.DT),
		yaw:   newAxisLoop(cfg.Gains, cfg.DT),
	}
}

func (c *Controller) Config() Config { return c.cfg }

// Reset clears the integral accumulators.
func (c *Controller) Reset() {
	c.roll.Set(0)
	c.pitch.Set(0)
	c.yaw.Set(0)
}

// Update runs one tick. torque is the common operator command.
func (c *Controller) Update(est attitude.Estimate, torque float32) Output {
	var out Output
	out.URoll = c.roll.Update(est.Roll, est.Rate[0])
	out.UPitch = c.pitch.Update(est.Pitch, est.Rate[1])
	out.UYaw = c.yaw.Update(est.Yaw, est.Rate[2])

	out.Torque = Mix(out.URoll, out.UPitch, torque, c.cfg.AxisMixing)
	for i := range out.Torque {
		out.Torque[i] = Clamp(out.Torque[i], c.cfg.TorqueMax)
	}
	return out
}

// Mix distributes the roll and pitch corrections over an X-configuration
// quadrotor.
func Mix(uRoll, uPitch, torque float32, axisMixing bool) [Motors]float32 {
	if !axisMixing {
		return [Motors]float32{torque, torque, torque, torque}
	}
	return [Motors]float32{
		-uPitch + uRoll + torque,
		+uPitch + uRoll + torque,
		-uPitch - uRoll + torque,
		+uPitch - uRoll + torque,
	}
}

// Clamp limits t to [0, max]. NaN maps to 0.
func Clamp(t, max float32) float32 {
	if !(t > 0) {
		return 0
	}
	if t > max {
		return max
	}
	return t
}
