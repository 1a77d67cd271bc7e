// Package telemetry streams the filtered attitude as short text lines over UDP.
package telemetry

import (
	"fmt"
	"math"
	"net"
	"sync"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

func dialUDP(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
	return net.DialUDP(network, laddr, raddr)
}

// Sender writes one attitude line every EveryN calls to Send.
type Sender struct {
	dest   string
	everyN int

	mu   sync.Mutex
	conn udpConn
	n    int
}

func NewSender(dest string, everyN int) (*Sender, error) {
	return newSender(dest, everyN, net.ResolveUDPAddr, dialUDP)
}

func newSender(dest string, everyN int, resolve resolveFunc, dial dialFunc) (*Sender, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resolve dest: %w", err)
	}
	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial udp: %w", err)
	}
	if everyN <= 0 {
		everyN = 1
	}
	return &Sender{dest: dest, everyN: everyN, conn: conn}, nil
}

func (s *Sender) Dest() string { return s.dest }

// Send is called once per control tick and transmits on every EveryN-th call.
func (s *Sender) Send(roll, pitch, yaw float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.n++
	if s.n < s.everyN {
		return nil
	}
	s.n = 0
	_, err := s.conn.Write([]byte(Format(roll, pitch, yaw)))
	return err
}

func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Format renders angles in hundredths of a degree, truncated to int16:
// "X:%06d,Y:%06d,Z:%06d\n" for roll, pitch and yaw.
func Format(roll, pitch, yaw float32) string {
	return fmt.Sprintf("X:%06d,Y:%06d,Z:%06d\n", centi(roll), centi(pitch), centi(yaw))
}

func centi(deg float32) int16 {
	v := float64(deg) * 100
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
