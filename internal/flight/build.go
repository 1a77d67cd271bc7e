package flight

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/pershinmr/skyalpha/internal/attitude"
	"github.com/pershinmr/skyalpha/internal/config"
	"github.com/pershinmr/skyalpha/internal/control"
	"github.com/pershinmr/skyalpha/internal/i2c"
	"github.com/pershinmr/skyalpha/internal/kalman"
	"github.com/pershinmr/skyalpha/internal/led"
	"github.com/pershinmr/skyalpha/internal/metrics"
	"github.com/pershinmr/skyalpha/internal/motor"
	"github.com/pershinmr/skyalpha/internal/sampler"
	"github.com/pershinmr/skyalpha/internal/sensors"
	"github.com/pershinmr/skyalpha/internal/sensors/adxl345"
	"github.com/pershinmr/skyalpha/internal/sensors/hmc5883l"
	"github.com/pershinmr/skyalpha/internal/sensors/itg3200"
	"github.com/pershinmr/skyalpha/internal/serial"
	"github.com/pershinmr/skyalpha/internal/sim"
	"github.com/pershinmr/skyalpha/internal/telemetry"
)

// Options carries process-level dependencies for Build.
type Options struct {
	Logger logrus.FieldLogger
	Stdin  io.Reader
	Stdout io.Writer
	// Now drives the simulated board. Defaults to time.Now.
	Now func() time.Time
}

type prober interface {
	Probe() error
}

// serialReadTimeout lets the pumps notice shutdown between bytes.
const serialReadTimeout = 250 * time.Millisecond

// Build wires a Service from cfg. On error every resource opened so far is
// released.
func Build(cfg config.Config, opts Options) (_ *Service, err error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Control.RateHz != config.ControlRateHz {
		return nil, fmt.Errorf("flight: control rate %d Hz does not match the %d Hz filter step", cfg.Control.RateHz, config.ControlRateHz)
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	var closers []io.Closer
	bus, busCloser, err := openBus(cfg, opts.Now, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		for _, c := range closers {
			_ = c.Close()
		}
		if busCloser != nil {
			_ = busCloser.Close()
		}
	}()

	accel, err := adxl345.New(i2c.NewDev(bus, cfg.Bus.AccelAddr))
	if err != nil {
		return nil, err
	}
	gyro, err := itg3200.New(i2c.NewDev(bus, cfg.Bus.GyroAddr))
	if err != nil {
		return nil, err
	}
	mag, err := hmc5883l.New(i2c.NewDev(bus, cfg.Bus.MagAddr))
	if err != nil {
		return nil, err
	}
	for _, d := range []sensors.Driver{accel, gyro, mag} {
		p, ok := d.(prober)
		if !ok {
			continue
		}
		if perr := p.Probe(); perr != nil {
			log.WithError(perr).WithField("sensor", d.Kind()).Warn("sensor probe failed")
		}
	}

	var rec *metrics.Recorder
	var tasks []Task
	if cfg.Metrics.Enable {
		reg := prometheus.NewRegistry()
		rec, err = metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		tasks = append(tasks, Task{Name: "metrics", Run: func(ctx context.Context) error {
			return metrics.Serve(ctx, cfg.Metrics.Listen, reg, log)
		}})
	}

	scfg := sampler.Config{
		Smoothing: float32(cfg.Sampler.Smoothing),
		WarnAfter: cfg.Sampler.WarnAfter,
		Logger:    log,
	}
	if rec != nil {
		scfg.Observer = rec
	}
	smp, err := sampler.New(scfg, accel, gyro, mag)
	if err != nil {
		return nil, err
	}
	if ierr := smp.Init(); ierr != nil {
		log.WithError(ierr).Warn("sensor init incomplete; continuing")
	}

	var offset [3]float32
	for i, v := range cfg.Control.CompassOffset {
		offset[i] = float32(v)
	}
	est := attitude.New(attitude.Config{
		GyroSensitivity: float32(cfg.Control.GyroSensitivity),
		CompassOffset:   offset,
	})
	kp, kd, ki := cfg.Control.Gains()
	ctl := control.New(control.Config{
		Gains: control.Gains{
			Kp: float32(kp),
			Kd: float32(kd),
			Ki: float32(ki),
		},
		DT:         kalman.DT,
		AxisMixing: cfg.Control.AxisMixing,
		TorqueMax:  float32(cfg.Control.TorqueMax),
	})
	mapper := control.PulseMapper{
		ClockHz:   cfg.PWM.ClockHz,
		FrameHz:   cfg.PWM.FrameHz,
		TorqueMax: float32(cfg.Control.TorqueMax),
	}

	out, err := motor.Open(motor.Config{
		Backend:  cfg.PWM.Backend,
		ChipPath: cfg.PWM.Chip,
		Channels: cfg.PWM.Channels,
		Mapper:   mapper,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, out)

	ccfg := CoreConfig{
		Sampler:   smp,
		Estimator: est,
		Control:   ctl,
		Mapper:    mapper,
		Motors:    out,
		Logger:    log,
	}
	if rec != nil {
		ccfg.Observer = rec
	}

	if cfg.LED.Enable {
		l, lerr := led.Open(cfg.LED.Chip, cfg.LED.Line)
		if lerr != nil {
			log.WithError(lerr).Warn("activity led unavailable")
		} else {
			ccfg.Activity = l
			closers = append(closers, l)
		}
	}

	if cfg.Telemetry.Enable {
		tx, terr := telemetry.NewSender(cfg.Telemetry.Dest, cfg.Telemetry.EveryNTick)
		if terr != nil {
			return nil, terr
		}
		ccfg.Telemetry = tx
		closers = append(closers, tx)
	}

	svcCfg := ServiceConfig{
		SensorRateHz:  cfg.Sampler.RateHz,
		ControlRateHz: cfg.Control.RateHz,
		Tasks:         tasks,
		Logger:        log,
	}
	if cfg.Bluetooth.Enable {
		p, perr := serial.Open(cfg.Bluetooth.Device, cfg.Bluetooth.Baud, serialReadTimeout)
		if perr != nil {
			return nil, perr
		}
		svcCfg.Bluetooth = p
		closers = append(closers, p)
	}
	if cfg.Console.Enable {
		if cfg.Console.Device == "" {
			svcCfg.Console = opts.Stdin
			svcCfg.ConsoleOut = opts.Stdout
		} else {
			p, perr := serial.Open(cfg.Console.Device, cfg.Console.Baud, serialReadTimeout)
			if perr != nil {
				return nil, perr
			}
			svcCfg.Console = p
			svcCfg.ConsoleOut = p
			closers = append(closers, p)
		}
	}
	// The bus goes last so the motors are parked first.
	if busCloser != nil {
		closers = append(closers, busCloser)
	}
	svcCfg.Closers = closers

	return NewService(NewCore(ccfg), svcCfg), nil
}

func openBus(cfg config.Config, now func() time.Time, log logrus.FieldLogger) (i2c.Bus, io.Closer, error) {
	switch cfg.Bus.Backend {
	case "linux":
		a, err := i2c.OpenAdapter(cfg.Bus.Device)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("bus", cfg.Bus.Device).Info("i2c bus opened")
		return a, a, nil
	case "sim", "":
		profile, err := simProfile(cfg.Sim, now)
		if err != nil {
			return nil, nil, err
		}
		var offset [3]float64
		copy(offset[:], cfg.Control.CompassOffset)
		board := sim.NewBoard(profile, offset, now)
		board.FailEvery = cfg.Sim.FailEvery
		log.WithField("bus", "sim").Info("simulated sensor board attached")
		return i2c.NewEngine(board), nil, nil
	default:
		return nil, nil, fmt.Errorf("flight: unknown bus backend %q", cfg.Bus.Backend)
	}
}

func simProfile(cfg config.SimConfig, now func() time.Time) (sim.Profile, error) {
	if cfg.Scenario == "" {
		return sim.Motion{
			RollAmpDeg:  cfg.RollAmpDeg,
			PitchAmpDeg: cfg.PitchAmpDeg,
			YawRateDegS: cfg.YawRateDegS,
			Period:      cfg.Period,
		}, nil
	}
	script, err := sim.LoadScenarioScript(cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("sim scenario: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	sc, err := sim.NewScenario(script, now())
	if err != nil {
		return nil, fmt.Errorf("sim scenario: %w", err)
	}
	return sc, nil
}
