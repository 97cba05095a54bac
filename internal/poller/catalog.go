// internal/poller/catalog.go
package poller

import (
	"time"

	"github.com/tamzrod/obd-monitor/internal/obd"
)

// Catalog periods.
const (
	PeriodFast   = 100 * time.Millisecond
	PeriodMedium = 500 * time.Millisecond
	PeriodSlow   = 2000 * time.Millisecond
)

// DefaultCatalog returns the fixed acquisition catalog.
// Order matters: it drives the start-up stagger.
func DefaultCatalog() []Entry {
	return []Entry{
		// driving dynamics
		{obd.PIDEngineRPM, PriorityHigh, PeriodFast},
		{obd.PIDVehicleSpeed, PriorityHigh, PeriodFast},
		{obd.PIDEngineLoad, PriorityHigh, PeriodFast},
		{obd.PIDThrottlePos, PriorityHigh, PeriodFast},

		// engine state
		{obd.PIDTimingAdvance, PriorityMedium, PeriodMedium},
		{obd.PIDMAFRate, PriorityMedium, PeriodMedium},
		{obd.PIDCoolantTemp, PriorityMedium, PeriodMedium},
		{obd.PIDIntakeAirTemp, PriorityMedium, PeriodMedium},
		{obd.PIDIntakePressure, PriorityMedium, PeriodMedium},
		{obd.PIDBarometric, PriorityMedium, PeriodMedium},
		{obd.PIDControlVoltage, PriorityMedium, PeriodMedium},

		// slow movers
		{obd.PIDAmbientAirTemp, PriorityLow, PeriodSlow},
		{obd.PIDFuelLevel, PriorityLow, PeriodSlow},
		{obd.PIDFuelPressure, PriorityLow, PeriodSlow},
		{obd.PIDShortFuelTrim, PriorityLow, PeriodSlow},
		{obd.PIDLongFuelTrim, PriorityLow, PeriodSlow},
		{obd.PIDDistanceWithMIL, PriorityLow, PeriodSlow},
		{obd.PIDMonitorStatus, PriorityLow, PeriodSlow},
	}
}
