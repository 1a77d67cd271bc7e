package motor

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// LogDriver records pulse widths and logs them at Debug level. It backs the
// simulator and hosts without PWM hardware.
type LogDriver struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	period uint64
	pulses map[int]uint64
	closed bool
}

func NewLogDriver(log logrus.FieldLogger) *LogDriver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogDriver{
		log:    log.WithField("component", "motor"),
		pulses: make(map[int]uint64),
	}
}

func (l *LogDriver) SetPeriodNS(ns uint64) error {
	l.mu.Lock()
	l.period = ns
	l.mu.Unlock()
	l.log.WithField("period_ns", ns).Debug("pwm period set")
	return nil
}

func (l *LogDriver) SetPulseNS(ch int, ns uint64) error {
	l.mu.Lock()
	l.pulses[ch] = ns
	l.mu.Unlock()
	l.log.WithFields(logrus.Fields{"channel": ch, "pulse_ns": ns}).Debug("pwm pulse")
	return nil
}

// Pulse returns the last pulse written to ch.
func (l *LogDriver) Pulse(ch int) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pulses[ch]
}

func (l *LogDriver) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}
