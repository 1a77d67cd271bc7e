// Package torque holds the operator's common torque command and the two ways it
// is set: a Bluetooth byte protocol and a console line.
package torque

import (
	"fmt"
	"sync/atomic"
)

// Store is the shared TorqueCommand. Writers are the Bluetooth receiver and the
// console; the control loop reads it every tick.
type Store struct {
	v atomic.Int64
}

func (s *Store) Load() int { return int(s.v.Load()) }

func (s *Store) Set(v int) { s.v.Store(int64(v)) }

// StatusLine is the acknowledgement emitted after every torque change.
func StatusLine(v int) string {
	return fmt.Sprintf("torque set: %d", v)
}
