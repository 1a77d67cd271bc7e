//go:build linux

package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// Open requests lineName (e.g. "GPIO17") as an output through the GPIO
// character device. An empty chip searches every /dev/gpiochip*.
func Open(chip, lineName string) (*LED, error) {
	if strings.TrimSpace(lineName) == "" {
		return nil, fmt.Errorf("led: empty line name")
	}
	candidates := []string{chip}
	if chip == "" {
		candidates = nil
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", e.Name()))
			}
		}
	}

	for _, chipPath := range candidates {
		c, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := c.FindLine(lineName)
		if err != nil {
			_ = c.Close()
			continue
		}
		line, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("skyalpha-led"))
		if err != nil {
			_ = c.Close()
			continue
		}
		return New(&gpiodLine{chip: c, line: line}), nil
	}
	return nil, fmt.Errorf("led: gpio line %q not found (or busy)", lineName)
}

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error {
	return g.line.SetValue(v)
}

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	if g.chip != nil {
		_ = g.chip.Close()
	}
	return err
}
