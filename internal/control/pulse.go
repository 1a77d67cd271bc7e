package control

// DefaultClockHz is the PWM timebase: an 80 MHz system clock divided by 64.
const DefaultClockHz = 1_250_000

// DefaultFrameHz is the standard RC servo/ESC frame rate.
const DefaultFrameHz = 50

// PulseMapper converts a motor torque into a pulse width in PWM clock ticks.
// Zero torque maps to a 1 ms pulse and full torque to 2 ms.
type PulseMapper struct {
	ClockHz   uint32
	FrameHz   uint32
	TorqueMax float32
}

func DefaultPulseMapper() PulseMapper {
	return PulseMapper{ClockHz: DefaultClockHz, FrameHz: DefaultFrameHz, TorqueMax: DefaultTorqueMax}
}

// Base is the number of ticks in one millisecond.
func (m PulseMapper) Base() uint32 { return m.ClockHz / 1000 }

// Period is the frame length in ticks.
func (m PulseMapper) Period() uint32 {
	if m.FrameHz == 0 {
		return 0
	}
	return m.ClockHz / m.FrameHz
}

// Width returns base + base*t/TorqueMax, with t clamped first.
func (m PulseMapper) Width(t float32) uint32 {
	max := m.TorqueMax
	if max <= 0 {
		max = DefaultTorqueMax
	}
	t = Clamp(t, max)
	base := m.Base()
	return base + uint32(float32(base)*t/max)
}

// Widths maps all four motor torques.
func (m PulseMapper) Widths(torque [Motors]float32) [Motors]uint32 {
	var w [Motors]uint32
	for i, t := range torque {
		w[i] = m.Width(t)
	}
	return w
}

// TicksToNanos converts a tick count on this mapper's clock to nanoseconds.
func (m PulseMapper) TicksToNanos(ticks uint32) uint64 {
	if m.ClockHz == 0 {
		return 0
	}
	return uint64(ticks) * 1_000_000_000 / uint64(m.ClockHz)
}
