package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pershinmr/skyalpha/internal/config"
	"github.com/pershinmr/skyalpha/internal/flight"
)

type rootFlags struct {
	configPath     string
	debug          bool
	statusInterval time.Duration
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "skyalpha",
		Short:         "quadrotor attitude estimation and stabilization controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to YAML config (defaults are used when empty)")
	root.PersistentFlags().BoolVar(&f.debug, "debug", false, "toggle debug logging")
	root.PersistentFlags().DurationVar(&f.statusInterval, "status-interval", 5*time.Second, "period of the status log line (0 disables)")

	root.AddCommand(newRunCmd(f), newSimCmd(f), newConfigCmd(f))
	return root
}

func newRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "run the flight loops with the configured bus and PWM backends",
		Example: "  skyalpha run --config /etc/skyalpha.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return runFlight(cmd.Context(), cfg, f)
		},
	}
}

func newSimCmd(f *rootFlags) *cobra.Command {
	var scenario string
	var rollAmp, pitchAmp, yawRate float64
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "run the flight loops against the simulated sensor board",
		Long: `sim forces the simulated I2C bus and the log PWM backend, so the whole
pipeline can run on a workstation. The board follows a sinusoidal motion
unless --scenario points at a keyframed YAML script.`,
		Example: "  skyalpha sim --roll-amp 15 --yaw-rate 10 --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			cfg.Bus.Backend = "sim"
			cfg.PWM.Backend = "log"
			if cmd.Flags().Changed("scenario") {
				cfg.Sim.Scenario = scenario
			}
			if cmd.Flags().Changed("roll-amp") {
				cfg.Sim.RollAmpDeg = rollAmp
			}
			if cmd.Flags().Changed("pitch-amp") {
				cfg.Sim.PitchAmpDeg = pitchAmp
			}
			if cmd.Flags().Changed("yaw-rate") {
				cfg.Sim.YawRateDegS = yawRate
			}
			return runFlight(cmd.Context(), cfg, f)
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "", "keyframed maneuver script")
	cmd.Flags().Float64Var(&rollAmp, "roll-amp", 0, "roll oscillation amplitude in degrees")
	cmd.Flags().Float64Var(&pitchAmp, "pitch-amp", 0, "pitch oscillation amplitude in degrees")
	cmd.Flags().Float64Var(&yawRate, "yaw-rate", 0, "constant turn rate in degrees per second")
	return cmd
}

func newConfigCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "print the effective configuration with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			b, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})
	return cmd
}

func loadConfig(f *rootFlags) (config.Config, error) {
	if f.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func setupLogging(level string, debug bool) (*logrus.Logger, error) {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
		return log, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	log.SetLevel(lvl)
	return log, nil
}

func runFlight(parent context.Context, cfg config.Config, f *rootFlags) error {
	log, err := setupLogging(cfg.Log.Level, f.debug)
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := flight.Build(cfg, flight.Options{Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			log.WithError(cerr).Warn("shutdown incomplete")
		}
	}()

	log.WithFields(logrus.Fields{
		"bus":         cfg.Bus.Backend,
		"pwm":         cfg.PWM.Backend,
		"axis_mixing": cfg.Control.AxisMixing,
	}).Info("skyalpha starting")
	if err := svc.Start(ctx); err != nil {
		return err
	}

	if f.statusInterval > 0 {
		go logStatus(ctx, log, svc, f.statusInterval)
	}
	<-ctx.Done()
	log.Info("skyalpha stopping")
	return nil
}
