// internal/status/encode.go
package status

import (
	"math"

	"github.com/tamzrod/obd-monitor/internal/obd"
)

// EncodeData converts a telemetry snapshot into the data block.
// Each field is scaled by 10^decimals and stored as a 16-bit integer;
// negative values use two's complement.
// No IO. No side effects.
func EncodeData(s obd.Snapshot) []uint16 {
	regs := make([]uint16, DataBlockSize)

	for i, f := range s.Fields() {
		if i >= DataFieldCount {
			break
		}
		regs[i] = scaled(f.Value, f.Decimals)
	}

	return regs
}

func scaled(v float64, decimals int) uint16 {
	v = math.Round(v * math.Pow10(decimals))

	switch {
	case v < math.MinInt16:
		v = math.MinInt16
	case v > math.MaxUint16:
		v = math.MaxUint16
	}

	if v < 0 {
		return uint16(int16(v))
	}
	return uint16(v)
}

// EncodeStatus converts a DeviceStatus into a full status block
// without the device name slots.
// Layout is protocol-locked.
func EncodeStatus(s DeviceStatus) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotBackoffJobs] = s.BackoffJobs

	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
