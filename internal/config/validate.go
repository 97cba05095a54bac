// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/Masterminds/semver/v3"
	"github.com/robfig/cron/v3"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// SupportedVersions is the schema constraint this build understands.
const SupportedVersions = "^1"

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are allowed everywhere Normalize supplies a default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	if err := validateVersion(cfg.Version); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if cfg.Log.Level != "" {
		if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch cfg.Log.Backend {
	case "", "slog", "zap":
	default:
		return fmt.Errorf("log.backend: unsupported %q (slog|zap)", cfg.Log.Backend)
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	b := cfg.Bus
	switch b.Driver {
	case "", "socketcan", "sim":
	default:
		return fmt.Errorf("bus.driver: unsupported %q (socketcan|sim)", b.Driver)
	}
	for _, v := range []struct {
		key string
		id  uint32
	}{
		{"bus.request_id", b.RequestID},
		{"bus.response_id_first", b.ResponseIDFirst},
		{"bus.response_id_last", b.ResponseIDLast},
	} {
		if v.id > 0x7FF {
			return fmt.Errorf("%s: 0x%X is not an 11-bit identifier", v.key, v.id)
		}
	}
	if b.ResponseIDFirst != 0 && b.ResponseIDLast != 0 && b.ResponseIDFirst > b.ResponseIDLast {
		return fmt.Errorf("bus: response_id_first 0x%X > response_id_last 0x%X", b.ResponseIDFirst, b.ResponseIDLast)
	}

	// ------------------------------------------------------------
	// SCHEDULER
	// ------------------------------------------------------------

	s := cfg.Scheduler
	for _, v := range []struct {
		key string
		val int
		max int
	}{
		{"scheduler.spacing_ms", s.SpacingMs, 1000},
		{"scheduler.idle_ms", s.IdleMs, 100},
		{"scheduler.stagger_ms", IntOr(s.StaggerMs, 0), 1000},
		{"scheduler.exchange_timeout_ms", s.ExchangeTimeoutMs, 5000},
		{"scheduler.receive_slice_ms", s.ReceiveSliceMs, 5000},
		{"scheduler.fail_threshold", s.FailThreshold, 1000},
		{"scheduler.backoff_base_ms", s.BackoffBaseMs, 600000},
		{"scheduler.backoff_step_ms", IntOr(s.BackoffStepMs, 0), 600000},
		{"scheduler.backoff_cap_ms", s.BackoffCapMs, 600000},
	} {
		if v.val < 0 || v.val > v.max {
			return fmt.Errorf("%s: %d out of range [0, %d]", v.key, v.val, v.max)
		}
	}
	if s.ReceiveSliceMs > 0 && s.ExchangeTimeoutMs > 0 && s.ReceiveSliceMs > s.ExchangeTimeoutMs {
		return fmt.Errorf("scheduler: receive_slice_ms %d exceeds exchange_timeout_ms %d", s.ReceiveSliceMs, s.ExchangeTimeoutMs)
	}

	// ------------------------------------------------------------
	// HTTP
	// ------------------------------------------------------------

	if cfg.HTTP.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Listen); err != nil {
			return fmt.Errorf("http.listen: %w", err)
		}
	}
	if cfg.HTTP.StreamIntervalMs < 0 {
		return errors.New("http.stream_interval_ms: must be >= 0")
	}

	// ------------------------------------------------------------
	// DISPLAY
	// ------------------------------------------------------------

	if w := cfg.Display.Width; w != 0 && (w < 16 || w > 40) {
		return fmt.Errorf("display.width: %d out of range [16, 40]", w)
	}
	if cfg.Display.RefreshMs < 0 {
		return errors.New("display.refresh_ms: must be >= 0")
	}

	// ------------------------------------------------------------
	// EXPORT (OPT-IN)
	// ------------------------------------------------------------

	if err := validateExport(cfg.Export); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// REPORT
	// ------------------------------------------------------------

	if sched := cfg.Report.Schedule; sched != "" && sched != "off" {
		if _, err := cron.ParseStandard(sched); err != nil {
			return fmt.Errorf("report.schedule: %w", err)
		}
	}

	return nil
}

func validateVersion(v string) error {
	if v == "" {
		return nil
	}

	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("version: %q: %w", v, err)
	}

	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(ver) {
		return fmt.Errorf("version: %s does not satisfy %s", ver, SupportedVersions)
	}
	return nil
}

func validateExport(e ExportConfig) error {
	// device_name sanity (ASCII only)
	for i := 0; i < len(e.DeviceName); i++ {
		if e.DeviceName[i] > 0x7F {
			return errors.New("export.device_name: must contain ASCII characters only")
		}
	}

	if !e.Enabled {
		return nil
	}

	switch e.Protocol {
	case "", "modbus", "ingest":
	default:
		return fmt.Errorf("export.protocol: unsupported %q (modbus|ingest)", e.Protocol)
	}

	if e.Endpoint == "" {
		return errors.New("export.endpoint: required when export is enabled")
	}
	if _, _, err := net.SplitHostPort(e.Endpoint); err != nil {
		return fmt.Errorf("export.endpoint: %w", err)
	}

	if e.IntervalMs < 0 || e.TimeoutMs < 0 || e.StaleAfterMs < 0 {
		return errors.New("export: durations must be >= 0")
	}

	// data and status blocks must not overlap
	dStart, dEnd := uint32(e.DataAddress), uint32(e.DataAddress)+status.DataBlockSize
	sStart, sEnd := uint32(e.StatusAddress), uint32(e.StatusAddress)+status.SlotsPerDevice
	if dEnd > 0x10000 || sEnd > 0x10000 {
		return errors.New("export: register block exceeds address space")
	}
	bothDefault := e.DataAddress == 0 && e.StatusAddress == 0
	if !bothDefault && dStart < sEnd && sStart < dEnd {
		return fmt.Errorf(
			"export: data block [%d,%d) overlaps status block [%d,%d)",
			dStart, dEnd, sStart, sEnd,
		)
	}

	return nil
}
