// internal/status/constants.go
package status

// Export register layout.
// These values define the protocol and MUST NOT be configurable.

// ---- DATA BLOCK ----

// DataBlockSize is the fixed number of registers in the telemetry block.
// Registers 0..17 follow obd.Snapshot.Fields order; 18..19 are reserved.
const DataBlockSize = 20

// DataFieldCount is the number of telemetry registers in use.
const DataFieldCount = 18

// ---- DEVICE STATUS BLOCK ----

// SlotsPerDevice is the fixed number of logical slots in the status block.
const SlotsPerDevice = 20

// SlotHealthCode holds the acquisition health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last export error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) spent in error.
const SlotSecondsInError = 2

// SlotBackoffJobs holds the number of PIDs currently in backoff.
const SlotBackoffJobs = 3

// Slots 4..10 are reserved for future use.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale represents a snapshot that has not been refreshed recently.
const HealthStale uint16 = 3

// HealthDisabled represents a disabled device state.
const HealthDisabled uint16 = 4

// ---- ERROR CODES ----
// Modbus exception responses are reported as 0x100 | exception code,
// ingest rejections as 0x200 | status byte.

const (
	ErrorCodeNone      uint16 = 0
	ErrorCodeWrite     uint16 = 1 // data block write failed
	ErrorCodeTransport uint16 = 3 // endpoint unreachable
)
