// internal/config/normalize.go
package config

import (
	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// Defaults.
const (
	DefaultVersion   = "1.0.0"
	DefaultInterface = "can0"

	DefaultSpacingMs         = 25
	DefaultIdleMs            = 5
	DefaultStaggerMs         = 10
	DefaultExchangeTimeoutMs = 100
	DefaultReceiveSliceMs    = 50
	DefaultFailThreshold     = 5
	DefaultBackoffBaseMs     = 2000
	DefaultBackoffStepMs     = 1000
	DefaultBackoffCapMs      = 18000

	DefaultStreamIntervalMs = 200
	DefaultRefreshMs        = 400
	DefaultDisplayWidth     = 16

	DefaultExportIntervalMs = 1000
	DefaultExportTimeoutMs  = 2000
	DefaultStaleAfterMs     = 5000

	DefaultReportSchedule = "@every 1m"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	setStr(&cfg.Version, DefaultVersion)

	setStr(&cfg.Log.Level, "info")
	setStr(&cfg.Log.Backend, "slog")

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	setStr(&cfg.Bus.Driver, "socketcan")
	setStr(&cfg.Bus.Interface, DefaultInterface)
	setU32(&cfg.Bus.RequestID, obd.FunctionalRequestID)
	setU32(&cfg.Bus.ResponseIDFirst, obd.ResponseIDFirst)
	setU32(&cfg.Bus.ResponseIDLast, obd.ResponseIDLast)

	// ------------------------------------------------------------
	// SCHEDULER
	// ------------------------------------------------------------

	s := &cfg.Scheduler
	setInt(&s.SpacingMs, DefaultSpacingMs)
	setInt(&s.IdleMs, DefaultIdleMs)
	setIntPtr(&s.StaggerMs, DefaultStaggerMs)
	setInt(&s.ExchangeTimeoutMs, DefaultExchangeTimeoutMs)
	setInt(&s.ReceiveSliceMs, DefaultReceiveSliceMs)
	setInt(&s.FailThreshold, DefaultFailThreshold)
	setInt(&s.BackoffBaseMs, DefaultBackoffBaseMs)
	setIntPtr(&s.BackoffStepMs, DefaultBackoffStepMs)
	setInt(&s.BackoffCapMs, DefaultBackoffCapMs)

	if s.ReceiveSliceMs > s.ExchangeTimeoutMs {
		s.ReceiveSliceMs = s.ExchangeTimeoutMs
	}

	// ------------------------------------------------------------
	// CONSUMERS
	// ------------------------------------------------------------

	setInt(&cfg.HTTP.StreamIntervalMs, DefaultStreamIntervalMs)
	setInt(&cfg.Display.RefreshMs, DefaultRefreshMs)
	setInt(&cfg.Display.Width, DefaultDisplayWidth)

	// ------------------------------------------------------------
	// EXPORT
	// ------------------------------------------------------------

	e := &cfg.Export
	setStr(&e.Protocol, "modbus")
	setInt(&e.IntervalMs, DefaultExportIntervalMs)
	setInt(&e.TimeoutMs, DefaultExportTimeoutMs)
	setInt(&e.StaleAfterMs, DefaultStaleAfterMs)
	if e.DataAddress == 0 && e.StatusAddress == 0 {
		e.StatusAddress = status.DataBlockSize
	}
	setStr(&e.DeviceName, "obd-monitor")

	// Truncate to max 16 characters; ASCII already validated.
	if len(e.DeviceName) > status.DeviceNameMaxChars {
		e.DeviceName = e.DeviceName[:status.DeviceNameMaxChars]
	}

	setStr(&cfg.Report.Schedule, DefaultReportSchedule)
}

func setStr(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

func setInt(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}

// setIntPtr fills only absent values, so an explicit 0 is kept.
func setIntPtr(p **int, def int) {
	if *p == nil {
		v := def
		*p = &v
	}
}

// IntOr returns *p, or def when p is nil.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func setU32(p *uint32, def uint32) {
	if *p == 0 {
		*p = def
	}
}
