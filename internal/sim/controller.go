// Package sim provides a simulated I2C master with ADXL345, ITG-3200 and
// HMC5883L register files driven by a motion profile.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pershinmr/skyalpha/internal/i2c"
)

const (
	AddrADXL345  = 0x53
	AddrITG3200  = 0x68
	AddrHMC5883L = 0x1E
)

// Device is a 256-byte register file with auto-incrementing pointer.
type Device struct {
	Regs [256]byte
	ptr  byte
}

// Controller implements i2c.Controller against simulated devices.
//
// Each Control keeps Busy true for BusyPolls polls. FailEvery > 0 makes every
// n-th command fail to exercise the error path.
type Controller struct {
	BusyPolls int
	FailEvery int

	mu      sync.Mutex
	devices map[uint16]*Device
	addr    uint16
	staged  byte
	last    byte
	err     error
	busy    int
	cmds    int
	refresh func(addr uint16, d *Device)
}

func NewController() *Controller {
	return &Controller{devices: make(map[uint16]*Device)}
}

// Attach places dev at addr.
func (c *Controller) Attach(addr uint16, dev *Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices[addr] = dev
}

// Device returns the register file at addr, or nil.
func (c *Controller) Device(addr uint16) *Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devices[addr]
}

// OnAddress installs a hook run whenever a transaction addresses a device,
// before any byte moves.
func (c *Controller) OnAddress(fn func(addr uint16, d *Device)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = fn
}

var errNack = errors.New("nack")

func (c *Controller) SetSlaveAddress(addr uint16, receive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = addr
	if !receive {
		if d := c.devices[addr]; d != nil && c.refresh != nil {
			c.refresh(addr, d)
		}
	}
}

func (c *Controller) Put(b byte) {
	c.mu.Lock()
	c.staged = b
	c.mu.Unlock()
}

func (c *Controller) Get() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Controller) Control(cmd i2c.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmds++
	c.busy = c.BusyPolls
	c.err = nil

	if c.FailEvery > 0 && c.cmds%c.FailEvery == 0 {
		c.err = fmt.Errorf("%w: injected on %s", errNack, cmd)
		return
	}
	d := c.devices[c.addr]
	if d == nil {
		c.err = fmt.Errorf("%w: no device at 0x%02X", errNack, c.addr)
		return
	}
	switch cmd {
	case i2c.CmdSingleSend, i2c.CmdBurstSendStart:
		d.ptr = c.staged
	case i2c.CmdBurstSendCont, i2c.CmdBurstSendFinish:
		d.Regs[d.ptr] = c.staged
		d.ptr++
	case i2c.CmdSingleReceive, i2c.CmdBurstReceiveStart, i2c.CmdBurstReceiveCont, i2c.CmdBurstReceiveFinish:
		c.last = d.Regs[d.ptr]
		d.ptr++
	default:
		c.err = fmt.Errorf("unknown command %s", cmd)
	}
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy > 0 {
		c.busy--
		return true
	}
	return false
}

func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Board is a Controller populated with the three flight sensors whose data
// registers follow a Profile.
type Board struct {
	*Controller

	Profile   Profile
	MagOffset [3]float64

	now func() time.Time
}

// NewBoard builds the simulated sensor board. now defaults to time.Now.
func NewBoard(p Profile, magOffset [3]float64, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	b := &Board{Controller: NewController(), Profile: p, MagOffset: magOffset, now: now}

	adxl := &Device{}
	adxl.Regs[0x00] = 0xE5
	itg := &Device{}
	itg.Regs[0x00] = AddrITG3200
	hmc := &Device{}
	copy(hmc.Regs[0x0A:], "H43")

	b.Attach(AddrADXL345, adxl)
	b.Attach(AddrITG3200, itg)
	b.Attach(AddrHMC5883L, hmc)
	b.OnAddress(b.update)
	return b
}

func (b *Board) update(addr uint16, d *Device) {
	roll, pitch, yaw, rates := b.Profile.Attitude(b.now())
	accel, gyro, mag := Readings(roll, pitch, yaw, rates, b.MagOffset)
	switch addr {
	case AddrADXL345:
		putBE(d.Regs[0x32:], accel[0], accel[1], accel[2])
	case AddrITG3200:
		putBE(d.Regs[0x1D:], gyro[0], gyro[1], gyro[2])
	case AddrHMC5883L:
		// X, Z, Y on the wire.
		putBE(d.Regs[0x03:], mag[0], mag[2], mag[1])
	}
}

func putBE(dst []byte, a, b, c int16) {
	for i, v := range [3]int16{a, b, c} {
		dst[2*i] = byte(uint16(v) >> 8)
		dst[2*i+1] = byte(uint16(v))
	}
}
