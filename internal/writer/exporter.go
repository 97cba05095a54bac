// internal/writer/exporter.go
package writer

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// Exporter periodically delivers the latest snapshot and the device
// status to one endpoint. It only reads the store; it never touches
// the bus.
type Exporter struct {
	data    *DataWriter
	status  StatusWriter
	store   *status.Store
	backoff func() int

	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	logger     logger.Logger

	// runner-owned state
	dev status.DeviceStatus
}

// NewExporter wires the writers to the store. backoff reports how many
// PIDs are currently in backoff; it may be nil.
func NewExporter(plan Plan, cli endpointClient, store *status.Store, backoff func() int, log logger.Logger) *Exporter {
	if backoff == nil {
		backoff = func() int { return 0 }
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Exporter{
		data:       NewDataWriter(plan, cli),
		status:     NewDeviceStatusWriter(plan, cli),
		store:      store,
		backoff:    backoff,
		interval:   plan.Interval,
		staleAfter: plan.StaleAfter,
		now:        time.Now,
		logger:     log,
		dev:        status.DeviceStatus{Health: status.HealthUnknown},
	}
}

// Status returns the last computed device status.
func (e *Exporter) Status() status.DeviceStatus {
	return e.dev
}

// Run exports on every interval and ticks seconds-in-error at 1 Hz
// until ctx is done.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert).
	if err := e.status.WriteStatus(e.dev); err != nil {
		e.logger.Warn("status write failed on start", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := e.ExportOnce(); err != nil {
				e.logger.Warn("export failed", "error", err)
			}

		case <-secTicker.C:
			e.tickSecond()
		}
	}
}

// ExportOnce performs one delivery of data and status.
// It returns the data write error, if any.
func (e *Exporter) ExportOnce() error {
	snap, seq := e.store.Load()

	var werr error
	if seq > 0 {
		werr = e.data.Write(snap)
	}

	next := e.dev
	next.BackoffJobs = clampU16(e.backoff())

	switch {
	case werr != nil:
		next.Health = status.HealthError
		next.LastErrorCode = errorCode(werr)

	case seq == 0:
		next.Health = status.HealthUnknown

	case e.staleAfter > 0 && e.now().Sub(snap.UpdatedAt) > e.staleAfter:
		next.Health = status.HealthStale

	default:
		// Recovery / OK
		next.Health = status.HealthOK
		next.LastErrorCode = status.ErrorCodeNone
		next.SecondsInError = 0
	}

	e.setStatus(next)
	return werr
}

// tickSecond advances seconds-in-error while not OK.
func (e *Exporter) tickSecond() {
	if e.dev.Health == status.HealthOK || e.dev.SecondsInError == 65535 {
		return
	}

	next := e.dev
	next.SecondsInError++
	e.setStatus(next)
}

func (e *Exporter) setStatus(next status.DeviceStatus) {
	if next == e.dev {
		return
	}
	if next.Health != e.dev.Health {
		e.logger.Info("export health changed",
			"from", healthName(e.dev.Health),
			"to", healthName(next.Health),
			"code", next.LastErrorCode,
		)
	}

	e.dev = next
	if err := e.status.WriteStatus(next); err != nil {
		e.logger.Warn("status write failed", "error", err)
	}
}

// errorCode extracts a best-effort uint16 code from an error without
// assuming concrete transports. Modbus exceptions map to 0x100|code.
func errorCode(err error) uint16 {
	if err == nil {
		return status.ErrorCodeNone
	}

	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return 0x100 | uint16(mbErr.ExceptionCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return status.ErrorCodeTransport
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return status.ErrorCodeWrite
}

func healthName(h uint16) string {
	switch h {
	case status.HealthUnknown:
		return "unknown"
	case status.HealthOK:
		return "ok"
	case status.HealthError:
		return "error"
	case status.HealthStale:
		return "stale"
	case status.HealthDisabled:
		return "disabled"
	}
	return "invalid"
}

func clampU16(n int) uint16 {
	switch {
	case n < 0:
		return 0
	case n > 65535:
		return 65535
	}
	return uint16(n)
}
