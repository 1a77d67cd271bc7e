package torque

// ParseConsoleLine decodes a console command the way C atoi does: optional
// leading whitespace, an optional sign, then decimal digits up to the first
// non-digit. Text without a leading number yields 0. Negative values are
// clamped to 0 since a torque command cannot be negative.
func ParseConsoleLine(line string) int {
	i := 0
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	neg := false
	if i < len(line) && (line[i] == '+' || line[i] == '-') {
		neg = line[i] == '-'
		i++
	}
	n := 0
	for ; i < len(line) && line[i] >= '0' && line[i] <= '9'; i++ {
		n = n*10 + int(line[i]-'0')
		if n > maxConsoleTorque {
			n = maxConsoleTorque
		}
	}
	if neg {
		return 0
	}
	return n
}

// maxConsoleTorque bounds parsing; larger values are clamped downstream anyway.
const maxConsoleTorque = 1 << 16

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Console applies console lines to a Store.
type Console struct {
	store *Store
}

func NewConsole(store *Store) *Console {
	return &Console{store: store}
}

// Handle sets the torque from line and returns the status line to echo back.
func (c *Console) Handle(line string) string {
	v := ParseConsoleLine(line)
	c.store.Set(v)
	return StatusLine(v)
}
