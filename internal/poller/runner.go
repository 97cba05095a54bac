// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
)

// ErrAlreadyRunning is returned when Run is called on a running poller.
var ErrAlreadyRunning = errors.New("poller: already running")

// Run drives the scheduler until ctx is done.
// One goroutine only: the poller is the sole user of its bus client.
// After every exchange it pauses for the spacing interval; when nothing
// is eligible it pauses for the idle interval instead.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	p.logger.Info("acquisition started",
		"spacing", p.spacing.String(),
		"idle", p.idle.String(),
		"jobs", len(p.jobs),
	)

	for ctx.Err() == nil {
		res := p.PollOnce()

		wait := p.spacing
		if res.Idle {
			wait = p.idle
		}

		if err := p.clock.Sleep(ctx, wait); err != nil {
			break
		}
	}

	p.logger.Info("acquisition stopped", "exchanges", p.metrics.ExchangeCount.Load())
	return nil
}
