// Package motor writes the four ESC pulse widths to a PWM backend.
package motor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/control"
)

// Driver is the minimal interface a PWM backend must provide.
//
// Times are in nanoseconds. Close should be best-effort and leave the outputs
// disabled.
type Driver interface {
	SetPeriodNS(ns uint64) error
	SetPulseNS(ch int, ns uint64) error
	Close() error
}

const (
	BackendSysfs = "sysfs"
	BackendLog   = "log"
)

type Config struct {
	Backend  string
	ChipPath string
	Channels []int
	Mapper   control.PulseMapper
	Logger   logrus.FieldLogger
}

// Open selects a backend and returns an initialized Output.
func Open(cfg Config) (*Output, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	var (
		d   Driver
		err error
	)
	switch cfg.Backend {
	case BackendLog, "":
		d = NewLogDriver(cfg.Logger)
	case BackendSysfs:
		d, err = openSysfsFn(cfg.ChipPath, cfg.Channels)
	default:
		return nil, fmt.Errorf("motor: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	o := NewOutput(d, cfg.Mapper)
	if err := o.Init(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return o, nil
}

// Output converts pulse widths in PWM clock ticks to driver writes.
type Output struct {
	d      Driver
	mapper control.PulseMapper

	mu   sync.Mutex
	last [control.Motors]uint32
}

func NewOutput(d Driver, mapper control.PulseMapper) *Output {
	return &Output{d: d, mapper: mapper}
}

// Init sets the frame period and parks every channel at the minimum pulse.
func (o *Output) Init() error {
	if err := o.d.SetPeriodNS(o.mapper.TicksToNanos(o.mapper.Period())); err != nil {
		return fmt.Errorf("motor: set period: %w", err)
	}
	return o.Park()
}

// Write outputs one pulse width per motor. All channels are attempted even when
// one fails.
func (o *Output) Write(widths [control.Motors]uint32) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for ch, w := range widths {
		if err := o.d.SetPulseNS(ch, o.mapper.TicksToNanos(w)); err != nil {
			errs = append(errs, fmt.Errorf("motor %d: %w", ch, err))
		}
	}
	o.last = widths
	return errors.Join(errs...)
}

// Park writes the zero-torque pulse to every motor.
func (o *Output) Park() error {
	b := o.mapper.Base()
	return o.Write([control.Motors]uint32{b, b, b, b})
}

// Last returns the most recently written widths.
func (o *Output) Last() [control.Motors]uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Close parks the motors and releases the driver.
func (o *Output) Close() error {
	perr := o.Park()
	cerr := o.d.Close()
	return errors.Join(perr, cerr)
}
