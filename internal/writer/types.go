// internal/writer/types.go
package writer

import "time"

// endpointClient is the exact contract the writers use.
// Addresses are zero-based holding register offsets.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Plan is the fully-built export plan.
type Plan struct {
	Endpoint string
	UnitID   uint8

	// DataAddress is where the telemetry block starts.
	DataAddress uint16
	// StatusAddress is where the device status block starts.
	StatusAddress uint16
	DeviceName    string

	Interval   time.Duration
	StaleAfter time.Duration
}
