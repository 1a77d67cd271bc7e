// Package sensors holds the pieces shared by the inertial/magnetic drivers:
// the raw three-axis sample and its wire decoding.
package sensors

import "fmt"

// Kind identifies one of the three sampled sensors.
type Kind int

const (
	Accelerometer Kind = iota
	Gyroscope
	Magnetometer
)

func (k Kind) String() string {
	switch k {
	case Accelerometer:
		return "accelerometer"
	case Gyroscope:
		return "gyroscope"
	case Magnetometer:
		return "magnetometer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Raw is one burst read of one sensor, in device counts.
type Raw struct {
	X, Y, Z int16
}

// XYZLen is the size of a three-axis output block.
const XYZLen = 6

// Axis positions of X, Y and Z inside a six byte output block.
var (
	OrderXYZ = [3]int{0, 1, 2}
	OrderXZY = [3]int{0, 2, 1}
)

// DecodeXYZ decodes three big-endian int16 words. order[i] is the word index of
// axis i (X, Y, Z).
func DecodeXYZ(b []byte, order [3]int) (Raw, error) {
	if len(b) < XYZLen {
		return Raw{}, fmt.Errorf("sensors: short xyz block (%d bytes)", len(b))
	}
	word := func(i int) int16 {
		return int16(b[2*i])<<8 | int16(b[2*i+1])
	}
	return Raw{X: word(order[0]), Y: word(order[1]), Z: word(order[2])}, nil
}

// Driver is the contract the sampler needs from each sensor.
type Driver interface {
	Kind() Kind
	Init() error
	ReadXYZ() (Raw, error)
}

// RegIO is the register access a driver performs on its device.
type RegIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}
