// internal/writer/status_writer.go
package writer

import (
	"github.com/tamzrod/obd-monitor/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.DeviceStatus) error
}

// DeviceStatusWriter writes the device status block. The device name
// only travels with full block re-asserts.
type DeviceStatusWriter struct {
	block    *blockWriter
	nameRegs []uint16
}

var _ StatusWriter = (*DeviceStatusWriter)(nil)

// NewDeviceStatusWriter builds the status block writer.
func NewDeviceStatusWriter(plan Plan, cli endpointClient) *DeviceStatusWriter {
	return &DeviceStatusWriter{
		block:    newBlockWriter("status writer", cli, plan.UnitID, plan.StatusAddress, status.SlotsPerDevice),
		nameRegs: status.EncodeDeviceName(plan.DeviceName),
	}
}

// WriteStatus delivers a device status snapshot into status memory.
// On any write failure, the next call re-asserts the full block.
func (sw *DeviceStatusWriter) WriteStatus(s status.DeviceStatus) error {
	return sw.block.write(sw.fullBlockRegs(s))
}

func (sw *DeviceStatusWriter) fullBlockRegs(s status.DeviceStatus) []uint16 {
	regs := status.EncodeStatus(s)

	// Reserved slots stay zero; the name always lives at the end.
	copy(regs[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameRegs)

	return regs
}
