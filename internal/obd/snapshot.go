// internal/obd/snapshot.go
package obd

import "time"

// Snapshot is the aggregate of every decoded parameter value.
// Each field stays zero until the PID that owns it is decoded once.
// It is a plain value: copying it copies everything.
type Snapshot struct {
	RPM                uint16  // 0x0C, rpm
	Speed              uint8   // 0x0D, km/h
	EngineLoad         float32 // 0x04, %
	ThrottlePos        float32 // 0x11, %
	TimingAdvance      float32 // 0x0E, deg before TDC
	CoolantTemp        int16   // 0x05, degC
	IntakeAirTemp      int16   // 0x0F, degC
	AmbientTemp        int16   // 0x46, degC
	IntakePressure     uint8   // 0x0B, kPa
	BarometricPressure float32 // 0x33, kPa
	MAFRate            float32 // 0x10, g/s
	FuelLevel          float32 // 0x2F, %
	FuelPressure       float32 // 0x0A, kPa
	FuelTrimShort      float32 // 0x06, %
	FuelTrimLong       float32 // 0x07, %
	BatteryVoltage     float32 // 0x42, V
	DistanceWithMIL    uint16  // 0x21, km
	DTCCount           uint8   // 0x01

	// UpdatedAt is the time of the decode that produced this snapshot.
	UpdatedAt time.Time
}

// Field is one named value of a snapshot, in display order.
type Field struct {
	Key      string
	Value    float64
	Unit     string
	Decimals int
}

// Fields lists the snapshot values in a stable order with the
// precision each one is reported at.
func (s Snapshot) Fields() []Field {
	return []Field{
		{"rpm", float64(s.RPM), "rpm", 0},
		{"speed", float64(s.Speed), "km/h", 0},
		{"load", float64(s.EngineLoad), "%", 1},
		{"throttle", float64(s.ThrottlePos), "%", 1},
		{"timing", float64(s.TimingAdvance), "deg", 1},
		{"maf", float64(s.MAFRate), "g/s", 2},
		{"temp_coolant", float64(s.CoolantTemp), "C", 0},
		{"temp_intake", float64(s.IntakeAirTemp), "C", 0},
		{"temp_ambient", float64(s.AmbientTemp), "C", 0},
		{"press_intake", float64(s.IntakePressure), "kPa", 0},
		{"press_baro", float64(s.BarometricPressure), "kPa", 1},
		{"fuel_lvl", float64(s.FuelLevel), "%", 1},
		{"fuel_press", float64(s.FuelPressure), "kPa", 1},
		{"fuel_trim_s", float64(s.FuelTrimShort), "%", 1},
		{"fuel_trim_l", float64(s.FuelTrimLong), "%", 1},
		{"batt", float64(s.BatteryVoltage), "V", 2},
		{"dist_mil", float64(s.DistanceWithMIL), "km", 0},
		{"dtc_count", float64(s.DTCCount), "", 0},
	}
}
