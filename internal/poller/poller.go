// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// Exchange failures. A mismatch never ends an exchange by itself:
// the wait continues until the window closes with ErrTimeout.
var (
	ErrSendFailure = errors.New("poller: request send failed")
	ErrTimeout     = errors.New("poller: no matching response")
	ErrMismatch    = errors.New("poller: response mismatch")
)

// Client performs one request/response exchange for a PID and returns
// the 4 raw payload bytes (A..D).
// The poller depends on this contract only.
type Client interface {
	ReadPID(pid uint8) ([4]byte, error)
}

// Poller is the acquisition scheduler. It owns the job table and the
// working snapshot; it is the only writer of both and of the store.
type Poller struct {
	client Client
	store  *status.Store

	spacing time.Duration
	idle    time.Duration
	backoff Backoff
	clock   Clock
	logger  logger.Logger

	epoch   time.Time
	jobs    []job
	working obd.Snapshot

	registry *xsync.MapOf[uint8, JobStatus]
	metrics  Metrics
	running  atomic.Bool
}

// New creates a poller over catalog. The catalog is copied and fixed for
// the life of the poller; every PID must be unique and decodable.
func New(catalog []Entry, client Client, store *status.Store, opts ...Option) (*Poller, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if store == nil {
		return nil, errors.New("poller: store required")
	}
	if len(catalog) == 0 {
		return nil, errors.New("poller: catalog is empty")
	}

	s := defaultSettings()
	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	seen := make(map[uint8]bool, len(catalog))
	for _, e := range catalog {
		if seen[e.PID] {
			return nil, fmt.Errorf("poller: duplicate pid 0x%02X", e.PID)
		}
		seen[e.PID] = true

		if _, ok := obd.Lookup(e.PID); !ok {
			return nil, fmt.Errorf("poller: no decoder for pid 0x%02X", e.PID)
		}
		if e.Period <= 0 {
			return nil, fmt.Errorf("poller: pid 0x%02X: period must be > 0", e.PID)
		}
		if e.Priority > PriorityLow {
			return nil, fmt.Errorf("poller: pid 0x%02X: invalid priority %d", e.PID, e.Priority)
		}
	}

	p := &Poller{
		client:   client,
		store:    store,
		spacing:  s.spacing,
		idle:     s.idle,
		backoff:  s.backoff,
		clock:    s.clock,
		logger:   s.logger,
		epoch:    s.clock.Now(),
		jobs:     make([]job, len(catalog)),
		registry: xsync.NewMapOf[uint8, JobStatus](),
	}

	for i, e := range catalog {
		p.jobs[i] = job{
			Entry:   e,
			nextDue: time.Duration(i) * s.stagger,
		}
		p.registry.Store(e.PID, p.statusOf(&p.jobs[i]))
	}

	return p, nil
}

// PollOnce performs exactly one scheduler iteration: select, exchange,
// decode and publish or record the failure. It does not sleep.
func (p *Poller) PollOnce() PollResult {
	at := p.clock.Now()
	now := at.Sub(p.epoch)

	idx := pick(now, p.jobs)
	if idx < 0 {
		p.metrics.incIdleCount()
		return PollResult{At: at, Idle: true}
	}

	j := &p.jobs[idx]
	p.metrics.incExchangeCount()

	b, err := p.client.ReadPID(j.PID)
	if err != nil {
		p.metrics.countErr(err)
		p.recordFailure(j, now, err)
	} else {
		obd.Apply(&p.working, j.PID, b)
		p.working.UpdatedAt = p.clock.Now()
		p.store.Publish(p.working)

		p.metrics.incSuccessCount()
		p.metrics.incPublishCount()

		if j.succeed(p.working.UpdatedAt) {
			p.logger.Info("pid recovered", "pid", obd.PIDName(j.PID))
		}
	}

	p.registry.Store(j.PID, p.statusOf(j))

	return PollResult{At: at, PID: j.PID, Err: err}
}

func (p *Poller) recordFailure(j *job, now time.Duration, err error) {
	if !j.fail(now, p.backoff, err) {
		p.logger.Debug("pid exchange failed",
			"pid", obd.PIDName(j.PID),
			"failures", j.failures,
			"state", j.state.String(),
			"error", err,
		)
		return
	}

	p.metrics.incBackoffEntryCount()
	p.logger.Warn("pid entered backoff",
		"pid", obd.PIDName(j.PID),
		"failures", j.failures,
		"backoff", (j.backoffUntil - now).String(),
		"error", err,
	)
}

func (p *Poller) statusOf(j *job) JobStatus {
	js := JobStatus{
		PID:         j.PID,
		Name:        obd.PIDName(j.PID),
		Priority:    j.Priority,
		PeriodMs:    j.Period.Milliseconds(),
		State:       j.state,
		Failures:    j.failures,
		Successes:   j.successes,
		FailTotal:   j.failTotal,
		NextDue:     p.epoch.Add(j.nextDue),
		LastSuccess: j.lastSuccess,
	}
	if j.backoffUntil > 0 {
		js.BackoffUntil = p.epoch.Add(j.backoffUntil)
	}
	if j.lastErr != nil {
		js.LastError = j.lastErr.Error()
	}
	return js
}

// Jobs returns the status of every job in catalog order.
// Safe for concurrent use.
func (p *Poller) Jobs() []JobStatus {
	out := make([]JobStatus, 0, len(p.jobs))
	for i := range p.jobs {
		if js, ok := p.registry.Load(p.jobs[i].PID); ok {
			out = append(out, js)
		}
	}
	return out
}

// Job returns the status of one PID. Safe for concurrent use.
func (p *Poller) Job(pid uint8) (JobStatus, bool) {
	return p.registry.Load(pid)
}

// BackoffCount returns the number of jobs currently in backoff.
// Safe for concurrent use.
func (p *Poller) BackoffCount() int {
	n := 0
	p.registry.Range(func(_ uint8, js JobStatus) bool {
		if js.State == StateBackoff {
			n++
		}
		return true
	})
	return n
}

// Metrics returns the live counters.
func (p *Poller) Metrics() *Metrics {
	return &p.metrics
}
