//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Adapter is a Linux I2C adapter backed by /dev/i2c-*.
//
// The kernel driver owns the master peripheral, so transactions are submitted
// whole with I2C_RDWR: a register write followed by a repeated-start read.
// Adapter implements Bus and can stand in for Engine on hosted boards.
//
// Adapter is not safe for concurrent transfers.
type Adapter struct {
	f    *os.File
	path string
}

const (
	i2cMrd  = 0x0001
	i2cRdwr = 0x0707
)

type msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

func OpenAdapter(path string) (*Adapter, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Adapter{f: f, path: path}, nil
}

func (a *Adapter) Path() string { return a.path }

func (a *Adapter) Close() error {
	if a == nil || a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

func (a *Adapter) ReadByte(addr uint16, reg byte) (byte, error) {
	var b [1]byte
	if _, err := a.ReadBurst(addr, reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (a *Adapter) WriteByte(addr uint16, reg, data byte) error {
	return a.WriteBurst(addr, reg, []byte{data})
}

func (a *Adapter) ReadBurst(addr uint16, reg byte, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if _, err := a.tx(addr, []byte{reg}, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (a *Adapter) WriteBurst(addr uint16, reg byte, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	_, err := a.tx(addr, w, nil)
	return err
}

func (a *Adapter) tx(addr uint16, w, r []byte) (int, error) {
	if a == nil || a.f == nil {
		return 0, errors.New("i2c adapter is nil")
	}
	if err := checkAddr(addr); err != nil {
		return 0, err
	}

	msgs := make([]msg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, msg{addr: addr, flags: 0, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, msg{addr: addr, flags: i2cMrd, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	data := rdwrData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, a.f.Fd(), uintptr(i2cRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return 0, fmt.Errorf("%w: %s addr 0x%02X: %v", ErrBus, a.path, addr, errno)
	}
	if len(r) > 0 {
		return len(r), nil
	}
	return len(w), nil
}
