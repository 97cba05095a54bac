// internal/obd/decode.go
package obd

import "sort"

// Decoder maps the payload bytes of one PID onto its snapshot field.
// Apply is pure over the byte values and total: every input decodes.
type Decoder struct {
	PID   uint8
	Bytes int    // payload bytes used (A, or A and B)
	Field string // snapshot key
	Apply func(s *Snapshot, b [4]byte)
}

func word(b [4]byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func percent(a byte) float32 {
	return float32(a) * 100 / 255
}

func celsius(a byte) int16 {
	return int16(a) - 40
}

func trim(a byte) float32 {
	return (float32(a) - 128) * 100 / 128
}

// decoders is the full PID table. Formulas use A=b[0], B=b[1].
var decoders = map[uint8]Decoder{
	// ((A*256)+B)/4
	PIDEngineRPM: {PIDEngineRPM, 2, "rpm", func(s *Snapshot, b [4]byte) { s.RPM = word(b) / 4 }},
	// A
	PIDVehicleSpeed: {PIDVehicleSpeed, 1, "speed", func(s *Snapshot, b [4]byte) { s.Speed = b[0] }},
	// A*100/255
	PIDEngineLoad:  {PIDEngineLoad, 1, "load", func(s *Snapshot, b [4]byte) { s.EngineLoad = percent(b[0]) }},
	PIDThrottlePos: {PIDThrottlePos, 1, "throttle", func(s *Snapshot, b [4]byte) { s.ThrottlePos = percent(b[0]) }},
	// A/2-64
	PIDTimingAdvance: {PIDTimingAdvance, 1, "timing", func(s *Snapshot, b [4]byte) {
		s.TimingAdvance = float32(b[0])/2 - 64
	}},
	// ((A*256)+B)/100
	PIDMAFRate: {PIDMAFRate, 2, "maf", func(s *Snapshot, b [4]byte) { s.MAFRate = float32(word(b)) / 100 }},
	// A-40
	PIDCoolantTemp:    {PIDCoolantTemp, 1, "temp_coolant", func(s *Snapshot, b [4]byte) { s.CoolantTemp = celsius(b[0]) }},
	PIDIntakeAirTemp:  {PIDIntakeAirTemp, 1, "temp_intake", func(s *Snapshot, b [4]byte) { s.IntakeAirTemp = celsius(b[0]) }},
	PIDAmbientAirTemp: {PIDAmbientAirTemp, 1, "temp_ambient", func(s *Snapshot, b [4]byte) { s.AmbientTemp = celsius(b[0]) }},
	// A
	PIDIntakePressure: {PIDIntakePressure, 1, "press_intake", func(s *Snapshot, b [4]byte) { s.IntakePressure = b[0] }},
	PIDBarometric: {PIDBarometric, 1, "press_baro", func(s *Snapshot, b [4]byte) {
		s.BarometricPressure = float32(b[0])
	}},
	// ((A*256)+B)/1000
	PIDControlVoltage: {PIDControlVoltage, 2, "batt", func(s *Snapshot, b [4]byte) {
		s.BatteryVoltage = float32(word(b)) / 1000
	}},
	PIDFuelLevel: {PIDFuelLevel, 1, "fuel_lvl", func(s *Snapshot, b [4]byte) { s.FuelLevel = percent(b[0]) }},
	// A*3
	PIDFuelPressure: {PIDFuelPressure, 1, "fuel_press", func(s *Snapshot, b [4]byte) { s.FuelPressure = float32(b[0]) * 3 }},
	// (A-128)*100/128
	PIDShortFuelTrim: {PIDShortFuelTrim, 1, "fuel_trim_s", func(s *Snapshot, b [4]byte) { s.FuelTrimShort = trim(b[0]) }},
	PIDLongFuelTrim:  {PIDLongFuelTrim, 1, "fuel_trim_l", func(s *Snapshot, b [4]byte) { s.FuelTrimLong = trim(b[0]) }},
	// (A*256)+B
	PIDDistanceWithMIL: {PIDDistanceWithMIL, 2, "dist_mil", func(s *Snapshot, b [4]byte) { s.DistanceWithMIL = word(b) }},
	// A & 0x7F
	PIDMonitorStatus: {PIDMonitorStatus, 1, "dtc_count", func(s *Snapshot, b [4]byte) { s.DTCCount = b[0] & 0x7F }},
}

// Lookup returns the decoder registered for pid.
func Lookup(pid uint8) (Decoder, bool) {
	d, ok := decoders[pid]
	return d, ok
}

// Apply decodes b into the field owned by pid.
// It reports false, leaving s untouched, when pid has no decoder.
func Apply(s *Snapshot, pid uint8, b [4]byte) bool {
	d, ok := decoders[pid]
	if !ok {
		return false
	}
	d.Apply(s, b)
	return true
}

// PIDs returns every decodable PID in ascending order.
func PIDs() []uint8 {
	out := make([]uint8, 0, len(decoders))
	for pid := range decoders {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
