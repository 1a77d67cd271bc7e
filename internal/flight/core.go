// Package flight ties the sensor, estimation and control stages together and
// runs them at their fixed rates.
package flight

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/attitude"
	"github.com/pershinmr/skyalpha/internal/control"
	"github.com/pershinmr/skyalpha/internal/sampler"
	"github.com/pershinmr/skyalpha/internal/torque"
)

// PulseWriter receives the four motor pulse widths in PWM clock ticks.
type PulseWriter interface {
	Write(widths [control.Motors]uint32) error
}

// ControlObserver is notified after every control tick.
type ControlObserver interface {
	ObserveControl(roll, pitch, yaw float32, torqueCmd int, motors []float32)
}

// AttitudeSink receives the filtered attitude after every control tick.
type AttitudeSink interface {
	Send(roll, pitch, yaw float32) error
}

// Activity is toggled for every Bluetooth byte.
type Activity interface {
	Toggle() error
}

// Snapshot is the state published after the most recent control tick.
type Snapshot struct {
	Estimate  attitude.Estimate
	Output    control.Output
	Widths    [control.Motors]uint32
	TorqueCmd int
	Sensors   sampler.Snapshot

	ControlTicks uint64
	LastError    string
	UpdatedAt    time.Time
}

type CoreConfig struct {
	Sampler   *sampler.Sampler
	Estimator *attitude.Estimator
	Control   *control.Controller
	Mapper    control.PulseMapper
	Motors    PulseWriter

	Observer  ControlObserver
	Telemetry AttitudeSink
	Activity  Activity
	Logger    logrus.FieldLogger
}

// Core exposes one entry point per external event: the 600 Hz sensor tick,
// the 100 Hz control tick, a Bluetooth byte and a console line.
//
// SensorTick and ControlTick may run on different goroutines; each must only
// be called from one goroutine at a time.
type Core struct {
	cfg     CoreConfig
	log     logrus.FieldLogger
	torque  *torque.Store
	bt      *torque.Receiver
	console *torque.Console

	mu   sync.RWMutex
	snap Snapshot
}

func NewCore(cfg CoreConfig) *Core {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	c := &Core{
		cfg:    cfg,
		log:    cfg.Logger.WithField("component", "flight"),
		torque: &torque.Store{},
	}
	c.bt = torque.NewReceiver(c.torque, cfg.Logger)
	c.bt.OnByte = c.onBluetoothByte
	c.console = torque.NewConsole(c.torque)
	return c
}

// SensorTick reads the next sensor in the round robin. Bus failures are
// recorded by the sampler and never interrupt the loop.
func (c *Core) SensorTick() {
	_, _ = c.cfg.Sampler.Tick()
}

// ControlTick runs the estimator, the controller and the motor output.
func (c *Core) ControlTick() Snapshot {
	sensors := c.cfg.Sampler.Snapshot()
	est := c.cfg.Estimator.Step(sensors)
	cmd := c.torque.Load()
	out := c.cfg.Control.Update(est, float32(cmd))
	widths := c.cfg.Mapper.Widths(out.Torque)

	var lastErr string
	if c.cfg.Motors != nil {
		if err := c.cfg.Motors.Write(widths); err != nil {
			lastErr = err.Error()
			c.log.WithError(err).Debug("motor write failed")
		}
	}
	if c.cfg.Observer != nil {
		c.cfg.Observer.ObserveControl(est.Roll, est.Pitch, est.Yaw, cmd, out.Torque[:])
	}
	if c.cfg.Telemetry != nil {
		if err := c.cfg.Telemetry.Send(est.Roll, est.Pitch, est.Yaw); err != nil {
			c.log.WithError(err).Debug("telemetry send failed")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Estimate = est
	c.snap.Output = out
	c.snap.Widths = widths
	c.snap.TorqueCmd = cmd
	c.snap.Sensors = sensors
	c.snap.ControlTicks++
	c.snap.LastError = lastErr
	c.snap.UpdatedAt = time.Now().UTC()
	return c.snap
}

// IngestBluetooth feeds one received byte to the Bluetooth protocol.
func (c *Core) IngestBluetooth(b byte) {
	c.bt.Feed(b)
}

// IngestConsoleLine sets the torque command from a console line and returns
// the status line to send back.
func (c *Core) IngestConsoleLine(line string) string {
	status := c.console.Handle(line)
	c.log.Info(status)
	return status
}

// TorqueCommand returns the current common torque command.
func (c *Core) TorqueCommand() int { return c.torque.Load() }

// BluetoothState returns the Bluetooth receiver state.
func (c *Core) BluetoothState() torque.State { return c.bt.State() }

func (c *Core) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Core) onBluetoothByte(b byte) {
	if c.cfg.Activity == nil {
		return
	}
	if err := c.cfg.Activity.Toggle(); err != nil {
		c.log.WithError(err).Debug("activity led toggle failed")
	}
}
