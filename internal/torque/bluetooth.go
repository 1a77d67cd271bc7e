package torque

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// State is the Bluetooth receiver state.
type State int

const (
	Standby State = iota
	AwaitingTorqueByte
)

func (s State) String() string {
	switch s {
	case Standby:
		return "standby"
	case AwaitingTorqueByte:
		return "awaiting-torque-byte"
	default:
		return "unknown"
	}
}

// CmdSetTorque is the command byte that announces a torque value.
const CmdSetTorque = 't'

// Receiver implements the two-byte Bluetooth protocol: 't' followed by one raw
// byte that becomes the torque command. Any other byte in Standby is ignored.
type Receiver struct {
	store *Store
	log   logrus.FieldLogger

	// OnByte, if set, is called for every received byte before it is decoded.
	OnByte func(b byte)

	mu    sync.Mutex
	state State
}

func NewReceiver(store *Store, log logrus.FieldLogger) *Receiver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Receiver{store: store, log: log.WithField("component", "bluetooth")}
}

func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Feed consumes one byte. It reports whether the torque command was updated.
func (r *Receiver) Feed(b byte) bool {
	if r.OnByte != nil {
		r.OnByte(b)
	}
	r.log.WithFields(logrus.Fields{"byte": b, "char": string(rune(b))}).Debug("bluetooth rx")

	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case Standby:
		if b == CmdSetTorque {
			r.state = AwaitingTorqueByte
		}
		return false
	case AwaitingTorqueByte:
		r.store.Set(int(b))
		r.state = Standby
		r.log.Info(StatusLine(int(b)))
		return true
	default:
		r.state = Standby
		return false
	}
}
