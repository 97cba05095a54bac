// internal/writer/ingest/client.go
package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Raw Ingest v1 wire constants.
const (
	magic     = "RI"
	versionV1 = 0x01
	headerLen = 10

	// AreaHoldingRegisters is the only area the exporter writes.
	AreaHoldingRegisters byte = 0x03

	statusOK byte = 0x00
)

const defaultTimeout = 2 * time.Second

// Packet is one Raw Ingest v1 write request.
//
//	0-1  magic "RI"
//	2    version
//	3    area
//	4-5  unit id
//	6-7  address
//	8-9  count
//	10+  payload
type Packet struct {
	Area    byte
	UnitID  uint8
	Addr    uint16
	Count   uint16
	Payload []byte
}

// MarshalBinary encodes the packet big-endian.
func (p Packet) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerLen, headerLen+len(p.Payload))
	copy(out, magic)
	out[2] = versionV1
	out[3] = p.Area
	binary.BigEndian.PutUint16(out[4:], uint16(p.UnitID))
	binary.BigEndian.PutUint16(out[6:], p.Addr)
	binary.BigEndian.PutUint16(out[8:], p.Count)
	return append(out, p.Payload...), nil
}

// RegistersPacket builds a holding register write.
func RegistersPacket(unitID uint8, addr uint16, regs []uint16) Packet {
	payload := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(payload[2*i:], r)
	}
	return Packet{
		Area:    AreaHoldingRegisters,
		UnitID:  unitID,
		Addr:    addr,
		Count:   uint16(len(regs)),
		Payload: payload,
	}
}

// RejectError is a non-zero status byte returned by the server.
type RejectError struct {
	Status byte
}

func (e *RejectError) Error() string {
	if e.Status == 0x01 {
		return "writer ingest: rejected"
	}
	return fmt.Sprintf("writer ingest: status 0x%02x", e.Status)
}

// Code reports the rejection in the device status error slot.
func (e *RejectError) Code() uint16 {
	return 0x200 | uint16(e.Status)
}

// EndpointClient sends each write as one packet on its own connection
// and waits for the single status byte.
type EndpointClient struct {
	endpoint string
	dialer   net.Dialer
	timeout  time.Duration
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer ingest: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &EndpointClient{
		endpoint: cfg.Endpoint,
		dialer:   net.Dialer{Timeout: cfg.Timeout},
		timeout:  cfg.Timeout,
	}, nil
}

// Close is a no-op; connections never outlive a write.
func (c *EndpointClient) Close() error { return nil }

func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	return c.Send(RegistersPacket(unitID, addr, regs))
}

// Send delivers one packet.
func (c *EndpointClient) Send(p Packet) error {
	raw, err := p.MarshalBinary()
	if err != nil {
		return err
	}

	conn, err := c.dialer.Dial("tcp", c.endpoint)
	if err != nil {
		return fmt.Errorf("writer ingest: dial: %w", err)
	}
	defer conn.Close()

	// one deadline covers the whole exchange
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(raw); err != nil {
		return fmt.Errorf("writer ingest: write: %w", err)
	}

	var status [1]byte
	if _, err := io.ReadFull(conn, status[:]); err != nil {
		return fmt.Errorf("writer ingest: read status: %w", err)
	}
	if status[0] != statusOK {
		return &RejectError{Status: status[0]}
	}
	return nil
}
