// Package serial opens UART ports and pumps their bytes or lines into
// callbacks.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const DefaultBaud = 9600

// Open opens a UART in raw 8N1 mode. A positive readTimeout lets Read return
// periodically with no data so pumps can observe cancellation.
func Open(name string, baud int, readTimeout time.Duration) (io.ReadWriteCloser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("serial: empty device name")
	}
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	return p, nil
}

// PumpBytes calls fn for every byte read from r until ctx is done or r fails.
// Zero-length reads (timeouts) are skipped. io.EOF ends the pump without error.
func PumpBytes(ctx context.Context, r io.Reader, fn func(b byte)) error {
	var buf [64]byte
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf[:])
		for i := 0; i < n; i++ {
			fn(buf[i])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("serial: read: %w", err)
		}
	}
}

// MaxLine bounds a console line; longer input is truncated.
const MaxLine = 128

// PumpLines splits r on '\n' (dropping '\r') and calls fn for each line,
// including empty ones. If w is non-nil, fn's non-empty reply is written back
// followed by a newline.
func PumpLines(ctx context.Context, r io.Reader, w io.Writer, fn func(line string) string) error {
	var line []byte
	var werr error
	err := PumpBytes(ctx, r, func(b byte) {
		switch b {
		case '\r':
			return
		case '\n':
			reply := fn(string(line))
			line = line[:0]
			if w != nil && reply != "" && werr == nil {
				_, werr = io.WriteString(w, reply+"\n")
			}
		default:
			if len(line) < MaxLine {
				line = append(line, b)
			}
		}
	})
	if err != nil {
		return err
	}
	if werr != nil {
		return fmt.Errorf("serial: write: %w", werr)
	}
	return nil
}
