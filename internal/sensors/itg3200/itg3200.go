package itg3200

import (
	"fmt"

	"github.com/pershinmr/skyalpha/internal/i2c"
	"github.com/pershinmr/skyalpha/internal/sensors"
)

// Minimal ITG-3200 gyroscope driver.
//
// Init selects the ±2000 °/s full-scale range (FS_SEL=3), the only range the
// part is specified for. Sensitivity is 14.375 LSB per °/s.

const (
	addrDefault = 0x68

	regWhoAmI    = 0x00
	regSmplrtDiv = 0x15
	regDLPFFS    = 0x16
	regGyroXoutH = 0x1D // X, Y, Z high/low pairs
	regPwrMgm    = 0x3E

	dlpfFSFullScale = 0x03 << 3
)

type Device struct {
	dev sensors.RegIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("itg3200: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev sensors.RegIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("itg3200: dev is nil")
	}
	return &Device{dev: dev}, nil
}

func (d *Device) Kind() sensors.Kind { return sensors.Gyroscope }

func (d *Device) Init() error {
	if err := d.dev.WriteReg(regDLPFFS, dlpfFSFullScale); err != nil {
		return fmt.Errorf("itg3200: dlpf/fs config failed: %w", err)
	}
	return nil
}

func (d *Device) ReadXYZ() (sensors.Raw, error) {
	buf := make([]byte, sensors.XYZLen)
	if err := d.dev.ReadReg(regGyroXoutH, buf); err != nil {
		return sensors.Raw{}, fmt.Errorf("itg3200: read gyro failed: %w", err)
	}
	return sensors.DecodeXYZ(buf, sensors.OrderXYZ)
}
