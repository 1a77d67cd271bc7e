// Package attitude derives roll/pitch/yaw measurements from the smoothed sensor
// vectors and runs one Kalman filter per axis at the control rate.
package attitude

import (
	"math"

	"github.com/pershinmr/skyalpha/internal/kalman"
	"github.com/pershinmr/skyalpha/internal/sampler"
)

const (
	// DefaultGyroSensitivity is ITG-3200 counts per °/s.
	DefaultGyroSensitivity = 14.7

	degPerRad = 180 / math.Pi
	radPerDeg = math.Pi / 180
)

// DefaultCompassOffset is the hard-iron offset of the reference airframe, in counts.
var DefaultCompassOffset = [3]float32{-82.0, 136.5, -283.0}

type Config struct {
	GyroSensitivity float32
	CompassOffset   [3]float32
}

// Estimate is one control tick's output. Angles are degrees, rates °/s.
type Estimate struct {
	Roll, Pitch, Yaw float32

	// Absolute-angle measurements fed to the filters.
	AccRoll, AccPitch, MagYaw float32
	// Gyro rates (x, y, z) fed to the filters.
	Rate [3]float32
}

// Estimator owns the three filters. Not safe for concurrent use.
type Estimator struct {
	cfg Config

	roll, pitch, yaw *kalman.Filter
}

func New(cfg Config) *Estimator {
	if cfg.GyroSensitivity == 0 {
		cfg.GyroSensitivity = DefaultGyroSensitivity
	}
	return &Estimator{
		cfg:   cfg,
		roll:  kalman.New(),
		pitch: kalman.New(),
		yaw:   kalman.New(),
	}
}

func (e *Estimator) Reset() {
	e.roll.Reset()
	e.pitch.Reset()
	e.yaw.Reset()
}

// Step advances all three filters by one fixed step using snap.
//
// Roll and pitch are filtered first; yaw's heading is tilt-compensated with the
// freshly filtered roll and pitch.
func (e *Estimator) Step(snap sampler.Snapshot) Estimate {
	var est Estimate
	a, g := snap.Accel, snap.Gyro

	est.Rate = [3]float32{
		g.X / e.cfg.GyroSensitivity,
		g.Y / e.cfg.GyroSensitivity,
		g.Z / e.cfg.GyroSensitivity,
	}
	est.AccPitch, est.AccRoll = TiltAngles(a)

	est.Roll = e.roll.Step(est.AccRoll, est.Rate[0])
	est.Pitch = e.pitch.Step(est.AccPitch, est.Rate[1])

	est.MagYaw = Heading(snap.Mag, e.cfg.CompassOffset, est.Roll, est.Pitch)
	est.Yaw = e.yaw.Step(est.MagYaw, est.Rate[2])
	return est
}

// TiltAngles returns pitch and roll in degrees from the gravity vector, for a
// sensor mounted with +Z pointing down.
func TiltAngles(a sampler.Vector) (pitch, roll float32) {
	pitch = -float32(math.Atan2(float64(a.X), float64(-a.Z)) * degPerRad)
	roll = float32(math.Atan2(float64(a.Y), float64(-a.Z)) * degPerRad)
	return pitch, roll
}

// Heading returns the tilt-compensated magnetic heading in degrees. roll and
// pitch are in degrees.
func Heading(m sampler.Vector, offset [3]float32, roll, pitch float32) float32 {
	cx := float64(m.X - offset[0])
	cy := float64(m.Y - offset[1])
	cz := float64(m.Z - offset[2])

	r := float64(roll) * radPerDeg
	p := float64(pitch) * radPerDeg
	sr, cr := math.Sincos(r)
	sp, cp := math.Sincos(p)

	yx := cx*cp + cz*sr*sp + cy*cr*sp
	yy := cz*cr - cy*sr
	return -float32(math.Atan2(yy, yx) * degPerRad)
}
