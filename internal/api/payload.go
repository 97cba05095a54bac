// internal/api/payload.go
package api

import (
	"math"
	"strconv"
	"strings"

	"github.com/tamzrod/obd-monitor/internal/obd"
)

// Data is the /data document. Keys and rounding match the dashboard
// served by the original head unit.
type Data struct {
	RPM         uint16  `json:"rpm"`
	Speed       uint8   `json:"speed"`
	Load        float64 `json:"load"`
	Throttle    float64 `json:"throttle"`
	Timing      float64 `json:"timing"`
	MAF         float64 `json:"maf"`
	TempCoolant int16   `json:"temp_coolant"`
	TempIntake  int16   `json:"temp_intake"`
	TempAmbient int16   `json:"temp_ambient"`
	PressIntake uint8   `json:"press_intake"`
	PressBaro   float64 `json:"press_baro"`
	FuelLevel   float64 `json:"fuel_lvl"`
	FuelPress   float64 `json:"fuel_press"`
	FuelTrimS   float64 `json:"fuel_trim_s"`
	FuelTrimL   float64 `json:"fuel_trim_l"`
	Battery     float64 `json:"batt"`
	DistMIL     uint16  `json:"dist_mil"`
	DTCCount    uint8   `json:"dtc_count"`
	PendingDTC  uint8   `json:"pending_dtc"` // not polled, always 0
}

// NewData converts a snapshot into the /data document.
func NewData(s obd.Snapshot) Data {
	return Data{
		RPM:         s.RPM,
		Speed:       s.Speed,
		Load:        round(s.EngineLoad, 1),
		Throttle:    round(s.ThrottlePos, 1),
		Timing:      round(s.TimingAdvance, 1),
		MAF:         round(s.MAFRate, 2),
		TempCoolant: s.CoolantTemp,
		TempIntake:  s.IntakeAirTemp,
		TempAmbient: s.AmbientTemp,
		PressIntake: s.IntakePressure,
		PressBaro:   round(s.BarometricPressure, 1),
		FuelLevel:   round(s.FuelLevel, 1),
		FuelPress:   round(s.FuelPressure, 1),
		FuelTrimS:   round(s.FuelTrimShort, 1),
		FuelTrimL:   round(s.FuelTrimLong, 1),
		Battery:     round(s.BatteryVoltage, 2),
		DistMIL:     s.DistanceWithMIL,
		DTCCount:    s.DTCCount,
	}
}

func round(v float32, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(float64(v)*p) / p
}

// FormatText renders the snapshot as "key: value" lines in field order.
func FormatText(s obd.Snapshot) string {
	var b strings.Builder
	for _, f := range s.Fields() {
		b.WriteString(f.Key)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(f.Value, 'f', f.Decimals, 64))
		b.WriteByte('\n')
	}
	b.WriteString("pending_dtc: 0\n")
	return b.String()
}
