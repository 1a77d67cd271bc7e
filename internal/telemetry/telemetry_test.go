package telemetry

import (
	"errors"
	"net"
	"testing"
)

type fakeConn struct {
	writes   []string
	writeErr error
	closed   bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, string(p))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newFake(t *testing.T, everyN int) (*Sender, *fakeConn) {
	t.Helper()
	fc := &fakeConn{}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) { return fc, nil }
	s, err := newSender("127.0.0.1:4000", everyN, net.ResolveUDPAddr, dial)
	if err != nil {
		t.Fatalf("newSender: %v", err)
	}
	return s, fc
}

func TestFormat(t *testing.T) {
	cases := []struct {
		roll, pitch, yaw float32
		want             string
	}{
		{0, 0, 0, "X:000000,Y:000000,Z:000000\n"},
		{1.5, -2.25, 179.99, "X:000150,Y:-00225,Z:017999\n"},
		{400, -400, float32(0), "X:032767,Y:-32768,Z:000000\n"},
	}
	for _, tc := range cases {
		if got := Format(tc.roll, tc.pitch, tc.yaw); got != tc.want {
			t.Fatalf("Format(%v,%v,%v)=%q want %q", tc.roll, tc.pitch, tc.yaw, got, tc.want)
		}
	}
}

func TestSend_EveryN(t *testing.T) {
	s, fc := newFake(t, 3)
	for i := 0; i < 7; i++ {
		if err := s.Send(1, 2, 3); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if len(fc.writes) != 2 {
		t.Fatalf("writes=%d want 2", len(fc.writes))
	}
	if fc.writes[0] != "X:000100,Y:000200,Z:000300\n" {
		t.Fatalf("line=%q", fc.writes[0])
	}
}

func TestSend_PropagatesWriteError(t *testing.T) {
	s, fc := newFake(t, 1)
	fc.writeErr = errors.New("unreachable")
	if err := s.Send(0, 0, 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewSender_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) { return nil, resolveErr }
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) { return &fakeConn{}, nil }
	if _, err := newSender("bad:addr", 1, resolve, dial); !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestClose_Idempotent(t *testing.T) {
	s, fc := newFake(t, 1)
	if err := s.Close(); err != nil || !fc.closed {
		t.Fatalf("Close: %v closed=%v", err, fc.closed)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Send(1, 1, 1); err != nil {
		t.Fatalf("Send after close: %v", err)
	}
}
