// Package bus is the shared, half-duplex CAN transport used for diagnostic
// requests. It knows frames, not OBD semantics.
//
// A Transport is NOT goroutine-safe. Exactly one owner (the acquisition
// poller) may send and receive on it, one outstanding request at a time.
package bus

import (
	"errors"
	"fmt"
	"time"
)

// MaxDataLen is the classic CAN payload size.
const MaxDataLen = 8

var (
	// ErrTimeout is returned by Receive when no frame arrived in time.
	ErrTimeout = errors.New("bus: receive timeout")
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("bus: closed")
	// ErrUnsupported is returned when a driver is unavailable on this platform.
	ErrUnsupported = errors.New("bus: driver not supported on this platform")
	// ErrDataTooLong is returned when a frame carries more than MaxDataLen bytes.
	ErrDataTooLong = errors.New("bus: data length exceeds 8 bytes")
)

// Frame is one classic CAN 2.0 frame.
type Frame struct {
	ID       uint32
	Extended bool // 29-bit identifier
	DLC      uint8
	Data     [MaxDataLen]byte
}

// Payload returns the first DLC bytes of Data.
func (f Frame) Payload() []byte {
	n := int(f.DLC)
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return f.Data[:n]
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%03X [%d] % X", f.ID, f.DLC, f.Payload())
}

// Transport is the request/response capability of the bus.
type Transport interface {
	// Send transmits one frame.
	Send(f Frame) error
	// Receive waits at most timeout for the next frame on the bus.
	// It returns ErrTimeout when the wait expires.
	Receive(timeout time.Duration) (Frame, error)
	Close() error
}
