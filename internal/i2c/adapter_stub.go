//go:build !linux

package i2c

import "fmt"

type Adapter struct{}

func OpenAdapter(path string) (*Adapter, error) {
	return nil, fmt.Errorf("i2c: unsupported OS (need linux)")
}

func (a *Adapter) Path() string { return "" }
func (a *Adapter) Close() error { return nil }

func (a *Adapter) ReadByte(addr uint16, reg byte) (byte, error) {
	return 0, fmt.Errorf("i2c: unsupported OS")
}
func (a *Adapter) WriteByte(addr uint16, reg, data byte) error {
	return fmt.Errorf("i2c: unsupported OS")
}
func (a *Adapter) ReadBurst(addr uint16, reg byte, buf []byte) (int, error) {
	return 0, fmt.Errorf("i2c: unsupported OS")
}
func (a *Adapter) WriteBurst(addr uint16, reg byte, buf []byte) error {
	return fmt.Errorf("i2c: unsupported OS")
}
