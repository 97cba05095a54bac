// internal/obd/pids.go
package obd

import "fmt"

// ServiceCurrentData is OBD-II service (mode) 01: show current data.
const ServiceCurrentData uint8 = 0x01

// ResponseOffset is added to the service id in a positive response.
const ResponseOffset uint8 = 0x40

// ISO 15765-4 11-bit diagnostic addressing.
const (
	FunctionalRequestID uint32 = 0x7DF
	ResponseIDFirst     uint32 = 0x7E8
	ResponseIDLast      uint32 = 0x7EF
)

// IsResponseID reports whether id lies in the ECU response range.
func IsResponseID(id uint32) bool {
	return id >= ResponseIDFirst && id <= ResponseIDLast
}

// Mode 01 parameter identifiers polled by the monitor.
const (
	PIDMonitorStatus   uint8 = 0x01 // DTC count lives in byte A
	PIDEngineLoad      uint8 = 0x04
	PIDCoolantTemp     uint8 = 0x05
	PIDShortFuelTrim   uint8 = 0x06
	PIDLongFuelTrim    uint8 = 0x07
	PIDFuelPressure    uint8 = 0x0A
	PIDIntakePressure  uint8 = 0x0B
	PIDEngineRPM       uint8 = 0x0C
	PIDVehicleSpeed    uint8 = 0x0D
	PIDTimingAdvance   uint8 = 0x0E
	PIDIntakeAirTemp   uint8 = 0x0F
	PIDMAFRate         uint8 = 0x10
	PIDThrottlePos     uint8 = 0x11
	PIDDistanceWithMIL uint8 = 0x21
	PIDFuelLevel       uint8 = 0x2F
	PIDBarometric      uint8 = 0x33
	PIDControlVoltage  uint8 = 0x42
	PIDAmbientAirTemp  uint8 = 0x46
)

// PIDName returns the snapshot field key decoded from pid,
// or a hex label for identifiers without a decoder.
func PIDName(pid uint8) string {
	if d, ok := decoders[pid]; ok {
		return d.Field
	}
	return fmt.Sprintf("pid_0x%02X", pid)
}
