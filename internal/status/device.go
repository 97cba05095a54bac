// internal/status/device.go
package status

// DeviceStatus is exactly what the status block delivers.
// It contains no logic and no memory of the past beyond current state.
type DeviceStatus struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	BackoffJobs    uint16
}
