package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Bus.Backend != "sim" || cfg.PWM.Backend != "log" {
		t.Fatalf("backends=%s/%s want sim/log", cfg.Bus.Backend, cfg.PWM.Backend)
	}
	if cfg.Sampler.RateHz != 600 || cfg.Control.RateHz != 100 {
		t.Fatalf("rates=%d/%d want 600/100", cfg.Sampler.RateHz, cfg.Control.RateHz)
	}
	if cfg.Sampler.Smoothing != 10 {
		t.Fatalf("smoothing=%d want 10", cfg.Sampler.Smoothing)
	}
	if kp, kd, ki := cfg.Control.Gains(); kp != 0.01 || kd != 0.01 || ki != 0.001 {
		t.Fatalf("gains=%v/%v/%v", kp, kd, ki)
	}
	if cfg.Control.AxisMixing {
		t.Fatalf("axis mixing should default off")
	}
	if cfg.PWM.ClockHz != 1_250_000 || cfg.PWM.FrameHz != 50 {
		t.Fatalf("pwm clock=%d frame=%d", cfg.PWM.ClockHz, cfg.PWM.FrameHz)
	}
	if cfg.Bus.AccelAddr != 0x53 || cfg.Bus.GyroAddr != 0x68 || cfg.Bus.MagAddr != 0x1E {
		t.Fatalf("addrs=%#x/%#x/%#x", cfg.Bus.AccelAddr, cfg.Bus.GyroAddr, cfg.Bus.MagAddr)
	}
	if len(cfg.Control.CompassOffset) != 3 || cfg.Control.CompassOffset[1] != 136.5 {
		t.Fatalf("compass offset=%v", cfg.Control.CompassOffset)
	}
	if cfg.Sim.Period != 20*time.Second {
		t.Fatalf("sim period=%s", cfg.Sim.Period)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeTempConfig(t, `
bus:
  backend: Linux
  device: /dev/i2c-3
control:
  axis_mixing: true
  compass_offset: [0, 0, 0]
pwm:
  backend: sysfs
  channels: [4, 5, 6, 7]
sim:
  period: 5s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Bus.Backend != "linux" || cfg.Bus.Device != "/dev/i2c-3" {
		t.Fatalf("bus=%+v", cfg.Bus)
	}
	if !cfg.Control.AxisMixing {
		t.Fatalf("axis mixing not applied")
	}
	if cfg.Control.CompassOffset[0] != 0 || cfg.Control.CompassOffset[2] != 0 {
		t.Fatalf("explicit zero offset was replaced: %v", cfg.Control.CompassOffset)
	}
	if cfg.PWM.Channels[3] != 7 {
		t.Fatalf("channels=%v", cfg.PWM.Channels)
	}
	if cfg.Sim.Period != 5*time.Second {
		t.Fatalf("period=%s", cfg.Sim.Period)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{name: "BusBackend", yaml: "bus: {backend: spi}\n", want: "bus.backend must be sim or linux"},
		{name: "PWMBackend", yaml: "pwm: {backend: gpio}\n", want: "pwm.backend must be sysfs or log"},
		{name: "Channels", yaml: "pwm: {channels: [0, 1]}\n", want: "pwm.channels must list 4 channels"},
		{name: "CompassOffset", yaml: "control: {compass_offset: [1, 2]}\n", want: "control.compass_offset must have 3 values"},
		{name: "Address", yaml: "bus: {accel_addr: 200}\n", want: "bus address 0xC8 is not a 7-bit address"},
		{name: "BluetoothDevice", yaml: "bluetooth: {enable: true}\n", want: "bluetooth.device is required when bluetooth.enable is true"},
		{name: "TelemetryDest", yaml: "telemetry: {enable: true}\n", want: "telemetry.dest is required when telemetry.enable is true"},
		{name: "FailEvery", yaml: "sim: {fail_every: -1}\n", want: "sim.fail_every must be >= 0"},
		{name: "ControlRate", yaml: "control: {rate_hz: 200}\n", want: "control.rate_hz must be 100 (the attitude filter step is fixed at 10ms)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.yaml))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_ExplicitZeroGainIsKept(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "control:\n  ki: 0\n  kd: 0.02\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	kp, kd, ki := cfg.Control.Gains()
	if ki != 0 {
		t.Fatalf("ki=%v want 0 (integral disabled)", ki)
	}
	if kd != 0.02 || kp != DefaultKp {
		t.Fatalf("kp=%v kd=%v", kp, kd)
	}
}

func TestControlGains_NilUsesDefaults(t *testing.T) {
	var c ControlConfig
	kp, kd, ki := c.Gains()
	if kp != DefaultKp || kd != DefaultKd || ki != DefaultKi {
		t.Fatalf("gains=%v/%v/%v", kp, kd, ki)
	}
}

func TestDefault_RoundTripsThroughYAML(t *testing.T) {
	b, err := Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Metrics.Listen != ":9100" || cfg.LED.Line != "GPIO17" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}
