// internal/poller/can/builder.go
package can

import (
	"time"

	"github.com/tamzrod/obd-monitor/internal/bus"
	cfg "github.com/tamzrod/obd-monitor/internal/config"
)

// Build opens the configured bus transport and wraps it in a Client.
// forceSim selects the simulated ECU regardless of bus.driver.
// The returned closer releases the transport.
func Build(b cfg.BusConfig, sc cfg.SchedulerConfig, forceSim bool) (*Client, func() error, error) {
	var tr bus.Transport

	if forceSim || b.Driver == "sim" {
		opts := []bus.SimOption{bus.WithUnsupported(b.SimUnsupported...)}
		if b.SimChatter {
			opts = append(opts, bus.WithChatter())
		}
		tr = bus.NewSimulator(opts...)
	} else {
		var filters []bus.Filter
		if b.KernelFilter {
			filters = rangeFilters(b.ResponseIDFirst, b.ResponseIDLast)
		}

		sock, err := bus.DialSocketCAN(b.Interface, filters...)
		if err != nil {
			return nil, nil, err
		}
		tr = sock
	}

	c, err := New(tr, Config{
		RequestID:     b.RequestID,
		ResponseFirst: b.ResponseIDFirst,
		ResponseLast:  b.ResponseIDLast,
		Timeout:       time.Duration(sc.ExchangeTimeoutMs) * time.Millisecond,
		Slice:         time.Duration(sc.ReceiveSliceMs) * time.Millisecond,
	})
	if err != nil {
		_ = tr.Close()
		return nil, nil, err
	}

	return c, tr.Close, nil
}

// rangeFilters covers [first, last] with one exact-match filter per id.
// The response range is at most a few ids wide.
func rangeFilters(first, last uint32) []bus.Filter {
	const sffMask = 0x7FF

	if first > last {
		return nil
	}
	out := make([]bus.Filter, 0, last-first+1)
	for id := first; id <= last; id++ {
		out = append(out, bus.Filter{ID: id, Mask: sffMask})
	}
	return out
}
