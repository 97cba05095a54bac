// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/obd-monitor/internal/config"
	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// Build constructs the poller for the default catalog from a normalized
// scheduler config. The client is owned by the poller from here on.
func Build(sc cfg.SchedulerConfig, client Client, store *status.Store, log logger.Logger) (*Poller, error) {
	return New(
		DefaultCatalog(),
		client,
		store,
		WithSpacing(msec(sc.SpacingMs)),
		WithIdle(msec(sc.IdleMs)),
		WithStagger(msec(cfg.IntOr(sc.StaggerMs, cfg.DefaultStaggerMs))),
		WithBackoff(Backoff{
			Threshold: sc.FailThreshold,
			Base:      msec(sc.BackoffBaseMs),
			Step:      msec(cfg.IntOr(sc.BackoffStepMs, cfg.DefaultBackoffStepMs)),
			Cap:       msec(sc.BackoffCapMs),
		}),
		WithLogger(log.With("component", "poller")),
	)
}

func msec(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
