// Package led drives the activity indicator toggled on each Bluetooth byte.
package led

import "sync"

// Line is a single digital output.
type Line interface {
	SetValue(v int) error
	Close() error
}

// LED toggles a Line. A nil *LED is a valid no-op.
type LED struct {
	mu   sync.Mutex
	line Line
	on   bool
}

func New(line Line) *LED {
	return &LED{line: line}
}

func (l *LED) Set(on bool) error {
	if l == nil || l.line == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(on)
}

func (l *LED) Toggle() error {
	if l == nil || l.line == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(!l.on)
}

func (l *LED) On() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *LED) setLocked(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return err
	}
	l.on = on
	return nil
}

// Close turns the LED off and releases the line.
func (l *LED) Close() error {
	if l == nil || l.line == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.line.SetValue(0)
	err := l.line.Close()
	l.line = nil
	return err
}
