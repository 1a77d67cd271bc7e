package flight

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/serial"
)

type ServiceConfig struct {
	SensorRateHz  int
	ControlRateHz int

	// Bluetooth, if set, is read byte by byte into the Bluetooth protocol.
	Bluetooth io.Reader
	// Console, if set, is read line by line; replies go to ConsoleOut.
	Console    io.Reader
	ConsoleOut io.Writer

	// Tasks run alongside the loops until the context is cancelled.
	Tasks []Task

	// Closers are released by Close after the loops stop, in order. The motor
	// output should be first so motors are parked before anything else.
	Closers []io.Closer
	Logger  logrus.FieldLogger
}

// Task is a named background job such as the metrics endpoint.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Service runs a Core: the sensor and control loops on tickers, and serial
// pumps for the torque inputs.
type Service struct {
	cfg  ServiceConfig
	core *Core
	log  logrus.FieldLogger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
	started  bool
}

func NewService(core *Core, cfg ServiceConfig) *Service {
	if cfg.SensorRateHz <= 0 {
		cfg.SensorRateHz = 600
	}
	if cfg.ControlRateHz <= 0 {
		cfg.ControlRateHz = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Service{cfg: cfg, core: core, log: cfg.Logger.WithField("component", "flight")}
}

func (s *Service) Core() *Core { return s.core }

func (s *Service) Snapshot() Snapshot { return s.core.Snapshot() }

func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.core == nil {
		return fmt.Errorf("flight: service is nil")
	}
	if s.started {
		return fmt.Errorf("flight: service already started")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)

	s.loop(ctx, "sensor", s.cfg.SensorRateHz, s.core.SensorTick)
	s.loop(ctx, "control", s.cfg.ControlRateHz, func() { s.core.ControlTick() })

	if s.cfg.Bluetooth != nil {
		s.pump(ctx, "bluetooth", func() error {
			return serial.PumpBytes(ctx, s.cfg.Bluetooth, s.core.IngestBluetooth)
		})
	}
	if s.cfg.Console != nil {
		s.pump(ctx, "console", func() error {
			return serial.PumpLines(ctx, s.cfg.Console, s.cfg.ConsoleOut, s.core.IngestConsoleLine)
		})
	}

	for _, t := range s.cfg.Tasks {
		t := t
		s.pump(ctx, t.Name, func() error { return t.Run(ctx) })
	}

	s.log.WithFields(logrus.Fields{
		"sensor_hz":  s.cfg.SensorRateHz,
		"control_hz": s.cfg.ControlRateHz,
	}).Info("flight loops started")
	return nil
}

func (s *Service) loop(ctx context.Context, name string, hz int, tick func()) {
	period := time.Second / time.Duration(hz)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				tick()
			}
		}
	}()
	s.log.WithFields(logrus.Fields{"loop": name, "period": period}).Debug("loop scheduled")
}

// pump goroutines are not waited for: a blocking read only returns once its
// port is closed.
func (s *Service) pump(ctx context.Context, name string, run func() error) {
	go func() {
		if err := run(); err != nil && ctx.Err() == nil {
			s.log.WithError(err).WithField("input", name).Warn("input stopped")
		}
	}()
}

// Close stops the loops, then releases the closers in order.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		for _, c := range s.cfg.Closers {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		s.log.Info("flight loops stopped")
	})
	return firstErr
}
