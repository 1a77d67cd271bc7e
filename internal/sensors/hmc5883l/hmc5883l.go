package hmc5883l

import (
	"fmt"

	"github.com/pershinmr/skyalpha/internal/i2c"
	"github.com/pershinmr/skyalpha/internal/sensors"
)

// Minimal HMC5883L magnetometer driver.
//
// NOTE: the output registers are ordered X, Z, Y.

const (
	addrDefault = 0x1E

	regConfigA = 0x00
	regConfigB = 0x01
	regMode    = 0x02
	regDataXH  = 0x03
	regIDA     = 0x0A

	configA8Avg75Hz = 0x78 // 8 samples averaged, 75 Hz output
	configBGain1_3  = 0x20
	modeContinuous  = 0x00
)

type Device struct {
	dev sensors.RegIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("hmc5883l: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev sensors.RegIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("hmc5883l: dev is nil")
	}
	return &Device{dev: dev}, nil
}

func (d *Device) Kind() sensors.Kind { return sensors.Magnetometer }

// Probe checks the 'H43' identification registers.
func (d *Device) Probe() error {
	id := make([]byte, 3)
	if err := d.dev.ReadReg(regIDA, id); err != nil {
		return fmt.Errorf("hmc5883l: id read failed: %w", err)
	}
	if string(id) != "H43" {
		return fmt.Errorf("hmc5883l: id=%q want \"H43\"", id)
	}
	return nil
}

func (d *Device) Init() error {
	_ = d.dev.WriteReg(regConfigA, configA8Avg75Hz)
	_ = d.dev.WriteReg(regConfigB, configBGain1_3)
	if err := d.dev.WriteReg(regMode, modeContinuous); err != nil {
		return fmt.Errorf("hmc5883l: continuous mode failed: %w", err)
	}
	return nil
}

func (d *Device) ReadXYZ() (sensors.Raw, error) {
	buf := make([]byte, sensors.XYZLen)
	if err := d.dev.ReadReg(regDataXH, buf); err != nil {
		return sensors.Raw{}, fmt.Errorf("hmc5883l: read mag failed: %w", err)
	}
	return sensors.DecodeXYZ(buf, sensors.OrderXZY)
}
