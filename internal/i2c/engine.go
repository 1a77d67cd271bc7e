package i2c

import (
	"errors"
	"fmt"
)

// ErrBus is wrapped by every error the controller reports during a transaction.
var ErrBus = errors.New("i2c: bus error")

// Command selects what the master controller does for one byte (or one phase)
// of a transaction. The set mirrors the classic single/burst master commands of
// microcontroller I2C peripherals.
type Command int

const (
	CmdSingleSend Command = iota
	CmdSingleReceive
	CmdBurstSendStart
	CmdBurstSendCont
	CmdBurstSendFinish
	CmdBurstReceiveStart
	CmdBurstReceiveCont
	CmdBurstReceiveFinish
)

func (c Command) String() string {
	switch c {
	case CmdSingleSend:
		return "single-send"
	case CmdSingleReceive:
		return "single-receive"
	case CmdBurstSendStart:
		return "burst-send-start"
	case CmdBurstSendCont:
		return "burst-send-cont"
	case CmdBurstSendFinish:
		return "burst-send-finish"
	case CmdBurstReceiveStart:
		return "burst-receive-start"
	case CmdBurstReceiveCont:
		return "burst-receive-cont"
	case CmdBurstReceiveFinish:
		return "burst-receive-finish"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Controller is the register-level view of an I2C master peripheral.
//
// Control starts a bus phase; Busy reports whether it is still running and Err
// reports the outcome once Busy is false. Put stages the next byte to send and
// Get returns the last byte received.
type Controller interface {
	SetSlaveAddress(addr uint16, receive bool)
	Put(b byte)
	Get() byte
	Control(cmd Command)
	Busy() bool
	Err() error
}

// Bus is the transaction-level interface sensor drivers talk to.
//
// ReadBurst fills all of buf starting at register reg and returns len(buf).
// On failure it returns 0 and an error wrapping ErrBus; buf contents are then
// undefined and must not be used.
type Bus interface {
	ReadByte(addr uint16, reg byte) (byte, error)
	WriteByte(addr uint16, reg, data byte) error
	ReadBurst(addr uint16, reg byte, buf []byte) (int, error)
	WriteBurst(addr uint16, reg byte, buf []byte) error
}

// Engine sequences register transactions over a Controller.
//
// Every phase busy-waits for the controller with no timeout: a controller that
// never clears Busy hangs the caller. Errors abort the transaction at once; the
// engine neither retries nor resets the bus.
//
// Engine is not safe for concurrent use. A single sampling loop owns it.
type Engine struct {
	c Controller
}

func NewEngine(c Controller) *Engine {
	return &Engine{c: c}
}

func (e *Engine) ReadByte(addr uint16, reg byte) (byte, error) {
	var b [1]byte
	if _, err := e.ReadBurst(addr, reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (e *Engine) WriteByte(addr uint16, reg, data byte) error {
	return e.WriteBurst(addr, reg, []byte{data})
}

// ReadBurst writes the register address without a stop condition, then issues a
// repeated start and clocks in len(buf) bytes.
func (e *Engine) ReadBurst(addr uint16, reg byte, buf []byte) (int, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	n := len(buf)
	if n == 0 {
		return 0, nil
	}

	e.wait()
	e.c.SetSlaveAddress(addr, false)
	e.c.Put(reg)
	if err := e.run(CmdBurstSendStart); err != nil {
		return 0, err
	}

	e.c.SetSlaveAddress(addr, true)
	for i := 0; i < n; i++ {
		if err := e.run(ReceiveCommand(i, n)); err != nil {
			return 0, err
		}
		buf[i] = e.c.Get()
	}
	return n, nil
}

// WriteBurst sends the register address with a burst start followed by the
// payload; the last payload byte carries the stop condition.
func (e *Engine) WriteBurst(addr uint16, reg byte, buf []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}

	e.wait()
	e.c.SetSlaveAddress(addr, false)
	e.c.Put(reg)
	if len(buf) == 0 {
		return e.run(CmdSingleSend)
	}
	if err := e.run(CmdBurstSendStart); err != nil {
		return err
	}
	for i, b := range buf {
		e.c.Put(b)
		if err := e.run(SendCommand(i, len(buf))); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveCommand returns the command for byte i of an n-byte read phase.
func ReceiveCommand(i, n int) Command {
	switch {
	case n == 1:
		return CmdSingleReceive
	case i == 0:
		return CmdBurstReceiveStart
	case i == n-1:
		return CmdBurstReceiveFinish
	default:
		return CmdBurstReceiveCont
	}
}

// SendCommand returns the command for payload byte i of an n-byte write that
// follows a burst-send-start register phase.
func SendCommand(i, n int) Command {
	if i == n-1 {
		return CmdBurstSendFinish
	}
	return CmdBurstSendCont
}

func (e *Engine) run(cmd Command) error {
	e.c.Control(cmd)
	e.wait()
	if err := e.c.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBus, cmd, err)
	}
	return nil
}

func (e *Engine) wait() {
	for e.c.Busy() {
	}
}

func checkAddr(addr uint16) error {
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("invalid i2c addr 0x%X", addr)
	}
	return nil
}

// Dev binds a Bus to one 7-bit device address.
type Dev struct {
	bus  Bus
	addr uint16
}

func NewDev(bus Bus, addr uint16) *Dev {
	if bus == nil {
		return nil
	}
	return &Dev{bus: bus, addr: addr}
}

func (d *Dev) Addr() uint16 { return d.addr }

func (d *Dev) ReadReg(reg byte, dst []byte) error {
	_, err := d.bus.ReadBurst(d.addr, reg, dst)
	return err
}

func (d *Dev) ReadRegU8(reg byte) (byte, error) {
	return d.bus.ReadByte(d.addr, reg)
}

func (d *Dev) WriteReg(reg, value byte) error {
	return d.bus.WriteByte(d.addr, reg, value)
}
