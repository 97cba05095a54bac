//go:build !linux

package bus

import "time"

// Filter is a receive acceptance filter: a frame passes when
// (id & Mask) == (ID & Mask).
type Filter struct {
	ID   uint32
	Mask uint32
}

// SocketCAN is only available on Linux.
type SocketCAN struct{}

var _ Transport = (*SocketCAN)(nil)

// DialSocketCAN always fails outside Linux.
func DialSocketCAN(string, ...Filter) (*SocketCAN, error) {
	return nil, ErrUnsupported
}

func (*SocketCAN) Send(Frame) error                     { return ErrUnsupported }
func (*SocketCAN) Receive(time.Duration) (Frame, error) { return Frame{}, ErrUnsupported }
func (*SocketCAN) Close() error                         { return nil }
