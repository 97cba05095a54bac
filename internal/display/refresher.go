// internal/display/refresher.go
package display

import (
	"context"
	"fmt"
	"time"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/status"
)

const (
	DefaultWidth   = 16
	DefaultRefresh = 400 * time.Millisecond
)

// Lines renders the two display rows for s, padded or cut to width:
// coolant temperature on top, battery voltage and RPM below.
func Lines(s obd.Snapshot, width int) [2]string {
	if width <= 0 {
		width = DefaultWidth
	}
	return [2]string{
		fit(fmt.Sprintf("TEMP:%2dC", s.CoolantTemp), width),
		fit(fmt.Sprintf("+%4.1fV |RPM:%4d", s.BatteryVoltage, s.RPM), width),
	}
}

func fit(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}

// Refresher periodically renders the latest snapshot onto a Display.
// It only reads the store.
type Refresher struct {
	disp     Display
	store    *status.Store
	interval time.Duration
	width    int
	logger   logger.Logger

	failing bool
}

func NewRefresher(d Display, store *status.Store, interval time.Duration, width int, log logger.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Refresher{
		disp:     d,
		store:    store,
		interval: interval,
		width:    width,
		logger:   log,
	}
}

// RefreshOnce writes both rows from the current snapshot.
func (r *Refresher) RefreshOnce() error {
	lines := Lines(r.store.Latest(), r.width)
	for row, text := range lines {
		if err := r.disp.WriteAt(row, 0, text); err != nil {
			return fmt.Errorf("display: row %d: %w", row, err)
		}
	}
	return nil
}

// Run refreshes until ctx is done. Write failures are logged once per
// failing streak and never stop the loop.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.refresh()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Refresher) refresh() {
	err := r.RefreshOnce()
	switch {
	case err != nil && !r.failing:
		r.failing = true
		r.logger.Warn("display refresh failed", "error", err)
	case err == nil && r.failing:
		r.failing = false
		r.logger.Info("display refresh recovered")
	}
}
