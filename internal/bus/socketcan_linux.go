//go:build linux

package bus

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Filter is a receive acceptance filter: a frame passes when
// (id & Mask) == (ID & Mask).
type Filter struct {
	ID   uint32
	Mask uint32
}

// SocketCAN is a raw CAN_RAW socket bound to one interface.
type SocketCAN struct {
	fd     int
	iface  string
	closed atomic.Bool
}

var _ Transport = (*SocketCAN)(nil)

// DialSocketCAN opens a raw CAN socket on iface (e.g. "can0").
// When filters are given the kernel drops everything else before
// it reaches the socket.
func DialSocketCAN(iface string, filters ...Filter) (*SocketCAN, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("bus: interface %q: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("bus: socket: %w", err)
	}

	if len(filters) > 0 {
		kf := make([]unix.CanFilter, 0, len(filters))
		for _, f := range filters {
			kf = append(kf, unix.CanFilter{Id: f.ID, Mask: f.Mask})
		}
		if err := unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, kf); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("bus: set filter: %w", err)
		}
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bus: bind %s: %w", iface, err)
	}

	return &SocketCAN{fd: fd, iface: iface}, nil
}

// Send writes one frame to the bus.
func (s *SocketCAN) Send(f Frame) error {
	if s.closed.Load() {
		return ErrClosed
	}

	raw, err := marshalFrame(f)
	if err != nil {
		return err
	}

	n, err := unix.Write(s.fd, raw)
	if err != nil {
		return fmt.Errorf("bus: write %s: %w", s.iface, err)
	}
	if n != frameSize {
		return fmt.Errorf("bus: short write on %s: %d bytes", s.iface, n)
	}
	return nil
}

// Receive waits for the next data frame. Error and remote frames
// are skipped without extending the deadline.
func (s *SocketCAN) Receive(timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, frameSize)

	for {
		if s.closed.Load() {
			return Frame{}, ErrClosed
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Frame{}, ErrTimeout
		}

		ms := int(remaining / time.Millisecond)
		if ms == 0 {
			ms = 1
		}

		fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return Frame{}, fmt.Errorf("bus: poll %s: %w", s.iface, err)
		}
		if n == 0 {
			return Frame{}, ErrTimeout
		}

		r, err := unix.Read(s.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return Frame{}, fmt.Errorf("bus: read %s: %w", s.iface, err)
		}

		if f, ok := unmarshalFrame(buf[:r]); ok {
			return f, nil
		}
	}
}

// Close releases the socket.
func (s *SocketCAN) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(s.fd)
}
