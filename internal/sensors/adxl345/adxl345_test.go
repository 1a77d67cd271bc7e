package adxl345

import (
	"errors"
	"testing"
)

func TestInit_EntersMeasureMode(t *testing.T) {
	f := &fakeI2C{}
	d, _ := newWithIO(f)
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var sawMeasure, sawFormat bool
	for _, w := range f.writes {
		if w.reg == regPowerCtl && w.val == powerCtlMeasure {
			sawMeasure = true
		}
		if w.reg == regDataFormat && w.val&formatFullRes != 0 {
			sawFormat = true
		}
	}
	if !sawMeasure {
		t.Fatalf("expected POWER_CTL measure write, writes=%+v", f.writes)
	}
	if !sawFormat {
		t.Fatalf("expected DATA_FORMAT full-res write, writes=%+v", f.writes)
	}
}

func TestInit_MeasureWriteFailure(t *testing.T) {
	f := &fakeI2C{writeErrFor: map[byte]error{regPowerCtl: errors.New("nack")}}
	d, _ := newWithIO(f)
	if err := d.Init(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestProbe(t *testing.T) {
	d, _ := newWithIO(&fakeI2C{regs: map[byte][]byte{regDevID: {devIDVal}}})
	if err := d.Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	d, _ = newWithIO(&fakeI2C{regs: map[byte][]byte{regDevID: {0x00}}})
	if err := d.Probe(); err == nil {
		t.Fatalf("expected devid mismatch")
	}
}

func TestReadXYZ(t *testing.T) {
	f := &fakeI2C{regs: map[byte][]byte{
		regDataX0: {0x00, 0x10, 0x00, 0x20, 0xFF, 0x00}, // 16, 32, -256
	}}
	d, _ := newWithIO(f)
	r, err := d.ReadXYZ()
	if err != nil {
		t.Fatalf("ReadXYZ: %v", err)
	}
	if r.X != 16 || r.Y != 32 || r.Z != -256 {
		t.Fatalf("r=%+v", r)
	}
}
