// internal/writer/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// MaxRegistersPerWrite is the FC16 quantity limit.
const MaxRegistersPerWrite = 123

// EndpointClient writes holding registers to one Modbus TCP server.
// goburrow dials on the first request; a failed request drops the
// connection so the next one starts clean.
type EndpointClient struct {
	mu       sync.Mutex
	endpoint string
	handler  *modbus.TCPClientHandler
	client   modbus.Client
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
	// IdleTimeout closes an unused connection. Zero keeps the handler default.
	IdleTimeout time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	if cfg.IdleTimeout > 0 {
		h.IdleTimeout = cfg.IdleTimeout
	}

	return &EndpointClient{
		endpoint: cfg.Endpoint,
		handler:  h,
		client:   modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes regs starting at addr with FC16, split into
// requests of at most MaxRegistersPerWrite registers.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	for off := 0; off < len(regs); off += MaxRegistersPerWrite {
		end := min(off+MaxRegistersPerWrite, len(regs))
		chunk := regs[off:end]
		start := addr + uint16(off)

		if _, err := c.client.WriteMultipleRegisters(start, uint16(len(chunk)), encode(chunk)); err != nil {
			_ = c.handler.Close()
			return fmt.Errorf("writer modbus: %s unit %d addr %d qty %d: %w",
				c.endpoint, unitID, start, len(chunk), err)
		}
	}
	return nil
}

func encode(regs []uint16) []byte {
	out := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[2*i:], r)
	}
	return out
}
