// internal/poller/can/client.go
package can

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tamzrod/obd-monitor/internal/bus"
	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/poller"
)

// Client implements poller.Client using OBD-II service 01 over CAN.
// It frames one request, then waits for the first response that echoes
// the PID. Any ECU in the response range may answer.
type Client struct {
	tr  bus.Transport
	cfg Config
	now func() time.Time

	metrics Metrics
}

var _ poller.Client = (*Client)(nil)

// Config is the exchange geometry.
type Config struct {
	RequestID     uint32
	ResponseFirst uint32
	ResponseLast  uint32

	// Timeout is the whole response window.
	Timeout time.Duration
	// Slice bounds a single receive call inside the window.
	Slice time.Duration
}

// DefaultConfig returns 0x7DF functional addressing with responses
// accepted from 0x7E8..0x7EF in a 100 ms window read in 50 ms slices.
func DefaultConfig() Config {
	return Config{
		RequestID:     obd.FunctionalRequestID,
		ResponseFirst: obd.ResponseIDFirst,
		ResponseLast:  obd.ResponseIDLast,
		Timeout:       100 * time.Millisecond,
		Slice:         50 * time.Millisecond,
	}
}

// New creates a client over tr. The transport must not be shared.
func New(tr bus.Transport, cfg Config) (*Client, error) {
	if tr == nil {
		return nil, errors.New("can client: transport required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("can client: timeout must be > 0")
	}
	if cfg.Slice <= 0 || cfg.Slice > cfg.Timeout {
		cfg.Slice = cfg.Timeout
	}
	if cfg.ResponseFirst > cfg.ResponseLast {
		return nil, fmt.Errorf("can client: empty response range 0x%X..0x%X", cfg.ResponseFirst, cfg.ResponseLast)
	}

	return &Client{tr: tr, cfg: cfg, now: time.Now}, nil
}

// Metrics returns the live exchange counters.
func (c *Client) Metrics() *Metrics {
	return &c.metrics
}

// ---- poller.Client interface ----

// ReadPID requests pid and returns the payload bytes A..D.
// A send error fails immediately, without retry. Frames that do not
// match are skipped; the exchange fails with poller.ErrTimeout when the
// window closes.
func (c *Client) ReadPID(pid uint8) ([4]byte, error) {
	var out [4]byte

	req := bus.Frame{
		ID:   c.cfg.RequestID,
		DLC:  8,
		Data: [bus.MaxDataLen]byte{0x02, obd.ServiceCurrentData, pid},
	}

	if err := c.tr.Send(req); err != nil {
		c.metrics.SendErrCount.Add(1)
		return out, fmt.Errorf("%w: pid 0x%02X: %w", poller.ErrSendFailure, pid, err)
	}
	c.metrics.RequestCount.Add(1)

	deadline := c.now().Add(c.cfg.Timeout)

	for {
		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			c.metrics.TimeoutCount.Add(1)
			return out, fmt.Errorf("%w: pid 0x%02X", poller.ErrTimeout, pid)
		}

		wait := c.cfg.Slice
		if remaining < wait {
			wait = remaining
		}

		f, err := c.tr.Receive(wait)
		if err != nil {
			if errors.Is(err, bus.ErrTimeout) {
				continue
			}
			c.metrics.TimeoutCount.Add(1)
			return out, fmt.Errorf("%w: pid 0x%02X: %w", poller.ErrTimeout, pid, err)
		}
		c.metrics.FrameCount.Add(1)

		if err := c.match(f, pid); err != nil {
			c.metrics.MismatchCount.Add(1)
			continue
		}

		copy(out[:], f.Data[3:7])
		return out, nil
	}
}

// match accepts a frame from any responder in range that echoes pid
// and carries at least the length, service and PID bytes.
func (c *Client) match(f bus.Frame, pid uint8) error {
	switch {
	case f.Extended || f.ID < c.cfg.ResponseFirst || f.ID > c.cfg.ResponseLast:
		return fmt.Errorf("%w: id 0x%X outside response range", poller.ErrMismatch, f.ID)
	case f.DLC < 3:
		return fmt.Errorf("%w: dlc %d", poller.ErrMismatch, f.DLC)
	case f.Data[2] != pid:
		return fmt.Errorf("%w: pid 0x%02X, want 0x%02X", poller.ErrMismatch, f.Data[2], pid)
	}
	return nil
}

// Metrics contains atomic counters of bus exchanges.
type Metrics struct {
	// RequestCount indicates the number of requests put on the bus.
	RequestCount atomic.Uint64
	// SendErrCount indicates the number of requests the transport refused.
	SendErrCount atomic.Uint64
	// FrameCount indicates the number of frames received during exchanges.
	FrameCount atomic.Uint64
	// MismatchCount indicates received frames that did not answer the request.
	MismatchCount atomic.Uint64
	// TimeoutCount indicates exchanges whose window closed without an answer.
	TimeoutCount atomic.Uint64
}

// MetricsSnapshot is a plain copy of Metrics.
type MetricsSnapshot struct {
	Requests   uint64 `json:"requests"`
	SendErrors uint64 `json:"send_errors"`
	Frames     uint64 `json:"frames"`
	Mismatches uint64 `json:"mismatches"`
	Timeouts   uint64 `json:"timeouts"`
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:   m.RequestCount.Load(),
		SendErrors: m.SendErrCount.Load(),
		Frames:     m.FrameCount.Load(),
		Mismatches: m.MismatchCount.Load(),
		Timeouts:   m.TimeoutCount.Load(),
	}
}
