//go:build !linux

package led

import "fmt"

func Open(chip, lineName string) (*LED, error) {
	return nil, fmt.Errorf("led: gpio unsupported on this platform")
}
