//go:build !linux

package motor

import "fmt"

func openSysfs(chipPath string, channels []int) (Driver, error) {
	return nil, fmt.Errorf("motor: sysfs pwm unsupported on this platform")
}

var openSysfsFn = openSysfs
