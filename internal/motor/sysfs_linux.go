//go:build linux

package motor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsPWM drives several channels of one PWM chip via /sys/class/pwm.
//
// On a Raspberry Pi the four ESC channels typically need an overlay such as
// pwm-2chan on two chips, or an external PCA9685-style expander exposed through
// the kernel PWM framework.
type sysfsPWM struct {
	chipPath string
	channels []int

	periodNS uint64
	enabled  map[int]bool
}

var pwmSysfsBase = "/sys/class/pwm"

var openSysfsFn = openSysfs

func openSysfs(chipPath string, channels []int) (Driver, error) {
	if len(channels) == 0 {
		channels = []int{0, 1, 2, 3}
	}
	if chipPath == "" {
		var err error
		chipPath, err = findPWMChip(len(channels))
		if err != nil {
			return nil, err
		}
	}
	d := &sysfsPWM{chipPath: chipPath, channels: channels, enabled: make(map[int]bool)}
	for _, ch := range channels {
		if err := d.ensureExported(ch); err != nil {
			return nil, err
		}
		_ = d.writeBool(ch, "enable", false, sysfsSetupRetry)
	}
	return d, nil
}

// findPWMChip returns the first pwmchip under pwmSysfsBase with at least n
// channels.
func findPWMChip(n int) (string, error) {
	base := pwmSysfsBase
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("motor: read %s: %w", base, err)
	}
	// pwmchipN entries are commonly symlinks, not directories.
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "pwmchip") {
			continue
		}
		chip := filepath.Join(base, name)
		npwm, rerr := readInt(filepath.Join(chip, "npwm"))
		if rerr != nil || npwm < n {
			continue
		}
		return chip, nil
	}
	return "", fmt.Errorf("motor: no sysfs pwmchip with %d channels (is the pwm overlay enabled?)", n)
}

func (d *sysfsPWM) pwmPath(ch int) string {
	return filepath.Join(d.chipPath, fmt.Sprintf("pwm%d", ch))
}

func (d *sysfsPWM) ensureExported(ch int) error {
	p := d.pwmPath(ch)
	if _, err := os.Stat(p); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(d.chipPath, "export"), strconv.Itoa(ch), sysfsSetupRetry); err != nil {
		if _, statErr := os.Stat(p); statErr == nil {
			return nil
		}
		return fmt.Errorf("motor: export pwm%d: %w", ch, err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(p); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("motor: pwm%d not created after export: %w", ch, err)
	}
	return nil
}

func (d *sysfsPWM) SetPeriodNS(ns uint64) error {
	if ns == 0 {
		return fmt.Errorf("motor: invalid period 0")
	}
	for _, ch := range d.channels {
		_ = d.writeBool(ch, "enable", false, sysfsSetupRetry)
		d.enabled[ch] = false
		if err := d.writeUint(ch, "period", ns, sysfsSetupRetry); err != nil {
			return err
		}
	}
	d.periodNS = ns
	return nil
}

// SetPulseNS takes a logical motor index, not a sysfs channel number. It runs
// on every control tick, so each attribute write is tried once.
func (d *sysfsPWM) SetPulseNS(motor int, ns uint64) error {
	if motor < 0 || motor >= len(d.channels) {
		return fmt.Errorf("motor: index %d out of range", motor)
	}
	ch := d.channels[motor]
	if d.periodNS > 0 && ns > d.periodNS {
		ns = d.periodNS
	}
	if err := d.writeUint(ch, "duty_cycle", ns, 0); err != nil {
		return err
	}
	if !d.enabled[ch] {
		if err := d.writeBool(ch, "enable", true, 0); err != nil {
			return err
		}
		d.enabled[ch] = true
	}
	return nil
}

func (d *sysfsPWM) Close() error {
	var errs []error
	for _, ch := range d.channels {
		if err := d.writeBool(ch, "enable", false, 0); err != nil {
			errs = append(errs, err)
		}
		d.enabled[ch] = false
	}
	return errors.Join(errs...)
}

func (d *sysfsPWM) writeUint(ch int, name string, v uint64, retry time.Duration) error {
	return writeSysfs(filepath.Join(d.pwmPath(ch), name), strconv.FormatUint(v, 10), retry)
}

func (d *sysfsPWM) writeBool(ch int, name string, v bool, retry time.Duration) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath(ch), name), val, retry)
}

// sysfsSetupRetry bounds how long export and period writes wait for udev to
// fix permissions on freshly exported attributes.
const sysfsSetupRetry = 2 * time.Second

// writeSysfs opens without O_TRUNC/O_CREATE, which some sysfs attributes
// reject. EACCES/ENOENT are retried until retry elapses; a zero retry makes a
// single attempt, which is what the per-tick pulse path uses.
func writeSysfs(path string, value string, retry time.Duration) error {
	deadline := time.Now().Add(retry)
	for {
		err := writeSysfsOnce(path, value)
		if err == nil {
			return nil
		}
		if retry <= 0 || !time.Now().Before(deadline) || !isRetryableSysfsErr(err) {
			return err
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func writeSysfsOnce(path string, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	return errors.Join(werr, cerr)
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.Atoi(s)
}
