package control

// axisLoop is the per-axis stabilization term.
//
// The derivative part mixes the error rate with the measured gyro rate scaled by
// dt, and the integral is a plain running sum of the error (not scaled by dt).
//
// Not safe for concurrent use.
type axisLoop struct {
	kp, kd, ki float32
	dt         float32
	setpoint   float32

	integral float32
}

func newAxisLoop(g Gains, dt float32) *axisLoop {
	return &axisLoop{kp: g.Kp, kd: g.Kd, ki: g.Ki, dt: dt}
}

// Set changes the setpoint and clears the accumulated error.
func (a *axisLoop) Set(setpoint float32) {
	a.setpoint = setpoint
	a.integral = 0
}

func (a *axisLoop) Update(actual, rate float32) float32 {
	err := a.setpoint - actual
	a.integral += err
	return a.kp*err + a.kd*(err/a.dt-rate*a.dt) + a.ki*a.integral
}
