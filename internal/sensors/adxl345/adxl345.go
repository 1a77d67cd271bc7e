package adxl345

import (
	"fmt"

	"github.com/pershinmr/skyalpha/internal/i2c"
	"github.com/pershinmr/skyalpha/internal/sensors"
)

// Minimal ADXL345 accelerometer driver.
//
// The output block is read as big-endian high/low pairs, matching the other
// two sensors on the bus.

const (
	addrDefault = 0x53 // ALT pin low

	regDevID      = 0x00
	devIDVal      = 0xE5
	regBWRate     = 0x2C
	regPowerCtl   = 0x2D
	regDataFormat = 0x31
	regDataX0     = 0x32

	bwRate100Hz     = 0x0A
	powerCtlMeasure = 0x08
	formatFullRes   = 0x08
	range16g        = 0x03
)

type Device struct {
	dev sensors.RegIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("adxl345: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev sensors.RegIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("adxl345: dev is nil")
	}
	return &Device{dev: dev}, nil
}

func (d *Device) Kind() sensors.Kind { return sensors.Accelerometer }

// Probe checks DEVID.
func (d *Device) Probe() error {
	id, err := d.dev.ReadRegU8(regDevID)
	if err != nil {
		return fmt.Errorf("adxl345: devid read failed: %w", err)
	}
	if id != devIDVal {
		return fmt.Errorf("adxl345: devid=0x%02X want 0x%02X", id, devIDVal)
	}
	return nil
}

func (d *Device) Init() error {
	if err := d.dev.WriteReg(regDataFormat, formatFullRes|range16g); err != nil {
		return fmt.Errorf("adxl345: data format failed: %w", err)
	}
	_ = d.dev.WriteReg(regBWRate, bwRate100Hz)
	if err := d.dev.WriteReg(regPowerCtl, powerCtlMeasure); err != nil {
		return fmt.Errorf("adxl345: measure mode failed: %w", err)
	}
	return nil
}

func (d *Device) ReadXYZ() (sensors.Raw, error) {
	buf := make([]byte, sensors.XYZLen)
	if err := d.dev.ReadReg(regDataX0, buf); err != nil {
		return sensors.Raw{}, fmt.Errorf("adxl345: read accel failed: %w", err)
	}
	return sensors.DecodeXYZ(buf, sensors.OrderXYZ)
}
