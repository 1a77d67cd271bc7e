package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	Sim       SimConfig       `yaml:"sim"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	Control   ControlConfig   `yaml:"control"`
	PWM       PWMConfig       `yaml:"pwm"`
	Bluetooth SerialConfig    `yaml:"bluetooth"`
	Console   SerialConfig    `yaml:"console"`
	LED       LEDConfig       `yaml:"led"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type BusConfig struct {
	// Backend is "sim" or "linux".
	Backend   string `yaml:"backend"`
	Device    string `yaml:"device"`
	AccelAddr uint16 `yaml:"accel_addr"`
	GyroAddr  uint16 `yaml:"gyro_addr"`
	MagAddr   uint16 `yaml:"mag_addr"`
}

type SimConfig struct {
	RollAmpDeg  float64       `yaml:"roll_amp_deg"`
	PitchAmpDeg float64       `yaml:"pitch_amp_deg"`
	YawRateDegS float64       `yaml:"yaw_rate_deg_s"`
	Period      time.Duration `yaml:"period"`
	// Scenario, if set, replaces the sinusoidal motion with a keyframed script.
	Scenario  string `yaml:"scenario"`
	FailEvery int    `yaml:"fail_every"`
}

type SamplerConfig struct {
	RateHz    int `yaml:"rate_hz"`
	Smoothing int `yaml:"smoothing"`
	WarnAfter int `yaml:"warn_after"`
}

type ControlConfig struct {
	RateHz int `yaml:"rate_hz"`
	// Gains are pointers so an explicit 0 disables a term instead of
	// selecting the default.
	Kp              *float64  `yaml:"kp"`
	Kd              *float64  `yaml:"kd"`
	Ki              *float64  `yaml:"ki"`
	GyroSensitivity float64   `yaml:"gyro_sensitivity"`
	CompassOffset   []float64 `yaml:"compass_offset"`
	AxisMixing      bool      `yaml:"axis_mixing"`
	TorqueMax       float64   `yaml:"torque_max"`
}

type PWMConfig struct {
	// Backend is "sysfs" or "log".
	Backend  string `yaml:"backend"`
	ClockHz  uint32 `yaml:"clock_hz"`
	FrameHz  uint32 `yaml:"frame_hz"`
	Chip     string `yaml:"chip"`
	Channels []int  `yaml:"channels"`
}

type SerialConfig struct {
	Enable bool `yaml:"enable"`
	// Device is a tty path. For the console an empty device means stdin/stdout.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type LEDConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   string `yaml:"line"`
}

type TelemetryConfig struct {
	Enable     bool   `yaml:"enable"`
	Dest       string `yaml:"dest"`
	EveryNTick int    `yaml:"every_n_ticks"`
}

type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var DefaultCompassOffset = []float64{-82.0, 136.5, -283.0}

// ControlRateHz is the only supported control loop rate; the Kalman filter
// integrates over a fixed 10ms step.
const ControlRateHz = 100

const (
	DefaultKp = 0.01
	DefaultKd = 0.01
	DefaultKi = 0.001
)

// Gains returns kp, kd and ki, using the defaults for unset values.
func (c ControlConfig) Gains() (kp, kd, ki float64) {
	return valueOr(c.Kp, DefaultKp), valueOr(c.Kd, DefaultKd), valueOr(c.Ki, DefaultKi)
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func float64Ptr(v float64) *float64 { return &v }

// Default returns a fully defaulted simulator configuration.
func Default() Config {
	var cfg Config
	if err := applyDefaults(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyDefaults(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func applyDefaults(cfg *Config) error {
	cfg.Bus.Backend = strings.ToLower(strings.TrimSpace(cfg.Bus.Backend))
	switch cfg.Bus.Backend {
	case "":
		cfg.Bus.Backend = "sim"
	case "sim", "linux":
	default:
		return fmt.Errorf("bus.backend must be sim or linux")
	}
	if cfg.Bus.Device == "" {
		cfg.Bus.Device = "/dev/i2c-1"
	}
	if cfg.Bus.AccelAddr == 0 {
		cfg.Bus.AccelAddr = 0x53
	}
	if cfg.Bus.GyroAddr == 0 {
		cfg.Bus.GyroAddr = 0x68
	}
	if cfg.Bus.MagAddr == 0 {
		cfg.Bus.MagAddr = 0x1E
	}
	for _, a := range []uint16{cfg.Bus.AccelAddr, cfg.Bus.GyroAddr, cfg.Bus.MagAddr} {
		if a > 0x7F {
			return fmt.Errorf("bus address 0x%X is not a 7-bit address", a)
		}
	}

	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 20 * time.Second
	}
	if cfg.Sim.FailEvery < 0 {
		return fmt.Errorf("sim.fail_every must be >= 0")
	}

	if cfg.Sampler.RateHz <= 0 {
		cfg.Sampler.RateHz = 600
	}
	if cfg.Sampler.Smoothing <= 0 {
		cfg.Sampler.Smoothing = 10
	}
	if cfg.Sampler.WarnAfter <= 0 {
		cfg.Sampler.WarnAfter = 100
	}

	if cfg.Control.RateHz <= 0 {
		cfg.Control.RateHz = ControlRateHz
	}
	if cfg.Control.RateHz != ControlRateHz {
		return fmt.Errorf("control.rate_hz must be %d (the attitude filter step is fixed at 10ms)", ControlRateHz)
	}
	if cfg.Control.Kp == nil {
		cfg.Control.Kp = float64Ptr(DefaultKp)
	}
	if cfg.Control.Kd == nil {
		cfg.Control.Kd = float64Ptr(DefaultKd)
	}
	if cfg.Control.Ki == nil {
		cfg.Control.Ki = float64Ptr(DefaultKi)
	}
	if cfg.Control.GyroSensitivity <= 0 {
		cfg.Control.GyroSensitivity = 14.7
	}
	if cfg.Control.CompassOffset == nil {
		cfg.Control.CompassOffset = append([]float64(nil), DefaultCompassOffset...)
	}
	if len(cfg.Control.CompassOffset) != 3 {
		return fmt.Errorf("control.compass_offset must have 3 values")
	}
	if cfg.Control.TorqueMax <= 0 {
		cfg.Control.TorqueMax = 100
	}

	cfg.PWM.Backend = strings.ToLower(strings.TrimSpace(cfg.PWM.Backend))
	switch cfg.PWM.Backend {
	case "":
		cfg.PWM.Backend = "log"
	case "log", "sysfs":
	default:
		return fmt.Errorf("pwm.backend must be sysfs or log")
	}
	if cfg.PWM.ClockHz == 0 {
		cfg.PWM.ClockHz = 1_250_000
	}
	if cfg.PWM.FrameHz == 0 {
		cfg.PWM.FrameHz = 50
	}
	if cfg.PWM.ClockHz < 1000 {
		return fmt.Errorf("pwm.clock_hz must be >= 1000")
	}
	if cfg.PWM.FrameHz > 500 {
		return fmt.Errorf("pwm.frame_hz must be <= 500 for a 2 ms pulse")
	}
	if len(cfg.PWM.Channels) == 0 {
		cfg.PWM.Channels = []int{0, 1, 2, 3}
	}
	if len(cfg.PWM.Channels) != 4 {
		return fmt.Errorf("pwm.channels must list 4 channels")
	}

	if cfg.Bluetooth.Baud <= 0 {
		cfg.Bluetooth.Baud = 9600
	}
	if cfg.Bluetooth.Enable && cfg.Bluetooth.Device == "" {
		return fmt.Errorf("bluetooth.device is required when bluetooth.enable is true")
	}
	if cfg.Console.Baud <= 0 {
		cfg.Console.Baud = 115200
	}

	if cfg.LED.Line == "" {
		cfg.LED.Line = "GPIO17"
	}

	if cfg.Telemetry.EveryNTick <= 0 {
		cfg.Telemetry.EveryNTick = 1
	}
	if cfg.Telemetry.Enable && cfg.Telemetry.Dest == "" {
		return fmt.Errorf("telemetry.dest is required when telemetry.enable is true")
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9100"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
