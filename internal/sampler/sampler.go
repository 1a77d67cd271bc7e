// Package sampler is the round-robin sensor scheduler.
//
// Each Tick samples exactly one sensor and folds the reading into that
// sensor's exponentially smoothed vector. Tick is meant to be called from one
// goroutine only; readers use Snapshot.
package sampler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/sensors"
)

var now = time.Now

// DefaultSmoothing is the divisor in v += (raw - v) / n.
const DefaultSmoothing = 10

// State is the sensor the next Tick will sample.
type State int

const (
	StateAccelerometer State = iota
	StateGyroscope
	StateMagnetometer
)

// Next is the fixed cyclic successor.
func (s State) Next() State {
	switch s {
	case StateAccelerometer:
		return StateGyroscope
	case StateGyroscope:
		return StateMagnetometer
	default:
		return StateAccelerometer
	}
}

func (s State) Kind() sensors.Kind {
	switch s {
	case StateGyroscope:
		return sensors.Gyroscope
	case StateMagnetometer:
		return sensors.Magnetometer
	default:
		return sensors.Accelerometer
	}
}

func (s State) String() string { return s.Kind().String() }

// Vector is a smoothed three-axis reading in device counts.
type Vector struct {
	X, Y, Z float32
}

// Smooth applies one step of v += (raw - v) / div per axis.
func (v Vector) Smooth(r sensors.Raw, div float32) Vector {
	return Vector{
		X: v.X + (float32(r.X)-v.X)/div,
		Y: v.Y + (float32(r.Y)-v.Y)/div,
		Z: v.Z + (float32(r.Z)-v.Z)/div,
	}
}

type SensorStatus struct {
	Reads        uint64
	Failures     uint64
	Consecutive  int
	LastUpdateAt time.Time
	LastError    string
}

// Snapshot is a consistent copy of everything the sampler publishes.
type Snapshot struct {
	Accel Vector
	Gyro  Vector
	Mag   Vector

	Status [3]SensorStatus
	Ticks  uint64
}

// Observer receives one call per sensor read.
type Observer interface {
	ObserveRead(kind sensors.Kind, err error)
}

type Config struct {
	Smoothing float32
	// WarnAfter consecutive failures of one sensor log a warning (once per streak).
	WarnAfter int
	Logger    logrus.FieldLogger
	Observer  Observer
}

type Sampler struct {
	cfg     Config
	log     logrus.FieldLogger
	drivers [3]sensors.Driver

	state   State
	vectors [3]Vector
	status  [3]SensorStatus
	ticks   uint64

	mu   sync.RWMutex
	snap Snapshot
}

func New(cfg Config, accel, gyro, mag sensors.Driver) (*Sampler, error) {
	if accel == nil || gyro == nil || mag == nil {
		return nil, fmt.Errorf("sampler: all three drivers are required")
	}
	if cfg.Smoothing <= 0 {
		cfg.Smoothing = DefaultSmoothing
	}
	if cfg.WarnAfter <= 0 {
		cfg.WarnAfter = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Sampler{
		cfg:     cfg,
		log:     cfg.Logger.WithField("component", "sampler"),
		drivers: [3]sensors.Driver{accel, gyro, mag},
		state:   StateAccelerometer,
	}, nil
}

// Init runs each driver's one-time register setup. All three are attempted.
func (s *Sampler) Init() error {
	var errs []error
	for _, d := range s.drivers {
		if err := d.Init(); err != nil {
			errs = append(errs, err)
			continue
		}
		s.log.WithField("sensor", d.Kind()).Debug("sensor initialized")
	}
	return errors.Join(errs...)
}

// State returns the sensor the next Tick samples. Owner goroutine only.
func (s *Sampler) State() State { return s.state }

// Tick samples the current sensor, smooths on success and advances the state.
// A failed read leaves that sensor's vector untouched. It returns the state that
// was sampled and the read error, if any.
func (s *Sampler) Tick() (State, error) {
	cur := s.state
	idx := int(cur)
	drv := s.drivers[idx]

	raw, err := drv.ReadXYZ()
	st := &s.status[idx]
	if err != nil {
		st.Failures++
		st.Consecutive++
		st.LastError = err.Error()
		s.log.WithField("sensor", cur).Debugf("read failed: %v", err)
		if st.Consecutive == s.cfg.WarnAfter {
			s.log.WithField("sensor", cur).Warnf("%d consecutive read failures: %v", st.Consecutive, err)
		}
	} else {
		s.vectors[idx] = s.vectors[idx].Smooth(raw, s.cfg.Smoothing)
		st.Reads++
		st.Consecutive = 0
		st.LastUpdateAt = now().UTC()
		st.LastError = ""
	}
	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveRead(cur.Kind(), err)
	}

	s.state = cur.Next()
	s.ticks++
	s.publish()
	return cur, err
}

func (s *Sampler) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Accel:  s.vectors[StateAccelerometer],
		Gyro:   s.vectors[StateGyroscope],
		Mag:    s.vectors[StateMagnetometer],
		Status: s.status,
		Ticks:  s.ticks,
	}
}

func (s *Sampler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
