package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/pershinmr/skyalpha/internal/i2c"
	"github.com/pershinmr/skyalpha/internal/sensors"
	"github.com/pershinmr/skyalpha/internal/sensors/adxl345"
	"github.com/pershinmr/skyalpha/internal/sensors/hmc5883l"
	"github.com/pershinmr/skyalpha/internal/sensors/itg3200"
)

type fixedProfile struct {
	roll, pitch, yaw float64
	rates            [3]float64
}

func (f fixedProfile) Attitude(time.Time) (float64, float64, float64, [3]float64) {
	return f.roll, f.pitch, f.yaw, f.rates
}

func TestBoard_DriversReadProfile(t *testing.T) {
	p := fixedProfile{roll: 10, pitch: -5, yaw: 60, rates: [3]float64{1, 2, 3}}
	offset := [3]float64{-82, 136.5, -283}
	b := NewBoard(p, offset, nil)
	b.BusyPolls = 2
	bus := i2c.NewEngine(b)

	accel, err := adxl345.New(i2c.NewDev(bus, AddrADXL345))
	if err != nil {
		t.Fatalf("adxl345.New: %v", err)
	}
	gyro, err := itg3200.New(i2c.NewDev(bus, AddrITG3200))
	if err != nil {
		t.Fatalf("itg3200.New: %v", err)
	}
	mag, err := hmc5883l.New(i2c.NewDev(bus, AddrHMC5883L))
	if err != nil {
		t.Fatalf("hmc5883l.New: %v", err)
	}
	if err := accel.Probe(); err != nil {
		t.Fatalf("adxl345 probe: %v", err)
	}
	if err := mag.Probe(); err != nil {
		t.Fatalf("hmc5883l probe: %v", err)
	}

	wantA, wantG, wantM := Readings(p.roll, p.pitch, p.yaw, p.rates, offset)
	for _, tc := range []struct {
		d    sensors.Driver
		want [3]int16
	}{{accel, wantA}, {gyro, wantG}, {mag, wantM}} {
		if err := tc.d.Init(); err != nil {
			t.Fatalf("%s init: %v", tc.d.Kind(), err)
		}
		raw, err := tc.d.ReadXYZ()
		if err != nil {
			t.Fatalf("%s read: %v", tc.d.Kind(), err)
		}
		if got := [3]int16{raw.X, raw.Y, raw.Z}; got != tc.want {
			t.Fatalf("%s raw=%v want %v", tc.d.Kind(), got, tc.want)
		}
	}

	if v := b.Device(AddrITG3200).Regs[0x16]; v != 0x18 {
		t.Fatalf("itg3200 DLPF_FS=0x%02X want 0x18", v)
	}
}

func TestController_MissingDeviceNacks(t *testing.T) {
	c := NewController()
	bus := i2c.NewEngine(c)
	_, err := bus.ReadByte(0x40, 0x00)
	if !errors.Is(err, i2c.ErrBus) {
		t.Fatalf("err=%v want ErrBus", err)
	}
}

func TestController_FailEvery(t *testing.T) {
	c := NewController()
	c.Attach(0x10, &Device{})
	c.FailEvery = 3
	bus := i2c.NewEngine(c)

	// Commands 1,2 succeed (address + single receive); command 3 fails.
	if _, err := bus.ReadByte(0x10, 0x00); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := bus.ReadByte(0x10, 0x00); !errors.Is(err, i2c.ErrBus) {
		t.Fatalf("second read err=%v want ErrBus", err)
	}
}
