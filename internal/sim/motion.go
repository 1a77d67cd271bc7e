package sim

import (
	"math"
	"time"
)

const (
	// AccelCountsPerG is the ADXL345 full-resolution scale.
	AccelCountsPerG = 256.0
	// GyroCountsPerDegS is the ITG-3200 scale.
	GyroCountsPerDegS = 14.7
	// MagFieldCounts is the horizontal field strength seen by the HMC5883L.
	MagFieldCounts = 300.0
)

// Motion is a deterministic attitude profile: roll and pitch oscillate around
// level while the heading turns at a constant rate.
type Motion struct {
	RollAmpDeg  float64
	PitchAmpDeg float64
	YawRateDegS float64
	Period      time.Duration
}

// Attitude returns the true attitude in degrees and body rates in °/s.
//
// Pitch is offset a quarter period from roll so the airframe traces a cone.
func (m Motion) Attitude(now time.Time) (roll, pitch, yaw float64, rates [3]float64) {
	period := m.Period
	if period <= 0 {
		period = 20 * time.Second
	}
	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase
	omega := 2 * math.Pi / period.Seconds()

	roll = m.RollAmpDeg * math.Sin(w)
	pitch = m.PitchAmpDeg * math.Cos(w)
	rates[0] = m.RollAmpDeg * omega * math.Cos(w)
	rates[1] = -m.PitchAmpDeg * omega * math.Sin(w)

	sec := float64(now.UnixNano()) / 1e9
	yaw = math.Mod(m.YawRateDegS*sec, 360)
	if yaw > 180 {
		yaw -= 360
	} else if yaw < -180 {
		yaw += 360
	}
	rates[2] = m.YawRateDegS
	return roll, pitch, yaw, rates
}

// Readings converts an attitude into raw sensor counts for a +Z-down mount.
// magOffset is the hard-iron offset added to the magnetometer.
func Readings(roll, pitch, yaw float64, rates [3]float64, magOffset [3]float64) (accel, gyro, mag [3]int16) {
	sr, cr := math.Sincos(roll * math.Pi / 180)
	sp, cp := math.Sincos(pitch * math.Pi / 180)
	sy, cy := math.Sincos(yaw * math.Pi / 180)

	accel = [3]int16{
		counts(-AccelCountsPerG * sp * cr),
		counts(AccelCountsPerG * sr * cp),
		counts(-AccelCountsPerG * cr * cp),
	}
	for i, r := range rates {
		gyro[i] = counts(r * GyroCountsPerDegS)
	}

	// Horizontal components of the field in the level frame.
	hx := MagFieldCounts * cy
	hy := -MagFieldCounts * sy
	// Tilt the level frame back into the body frame with zero vertical field.
	bx := hx * cp
	a := hx * sp
	by := a*cr - hy*sr
	bz := a*sr + hy*cr
	mag = [3]int16{
		counts(bx + magOffset[0]),
		counts(by + magOffset[1]),
		counts(bz + magOffset[2]),
	}
	return accel, gyro, mag
}

func counts(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
