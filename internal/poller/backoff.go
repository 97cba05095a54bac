// internal/poller/backoff.go
package poller

import (
	"errors"
	"time"
)

// Backoff holds the failure policy shared by every job.
type Backoff struct {
	// Threshold is the number of consecutive failures that puts a job
	// into backoff. Below it the job retries after half a period.
	Threshold int
	// Base is the minimum backoff length.
	Base time.Duration
	// Step is added per failure beyond Threshold.
	Step time.Duration
	// Cap bounds the accumulated Step total.
	Cap time.Duration
}

// DefaultBackoff returns 5 failures, 2 s base, 1 s step, 18 s cap
// (20 s ceiling).
func DefaultBackoff() Backoff {
	return Backoff{
		Threshold: 5,
		Base:      2000 * time.Millisecond,
		Step:      1000 * time.Millisecond,
		Cap:       18000 * time.Millisecond,
	}
}

func (b Backoff) validate() error {
	if b.Threshold < 1 {
		return errors.New("poller: backoff threshold must be >= 1")
	}
	if b.Base < 0 || b.Step < 0 || b.Cap < 0 {
		return errors.New("poller: backoff durations must be >= 0")
	}
	return nil
}

// Delay returns the backoff length after failures consecutive failures.
// It is only meaningful for failures >= Threshold.
func (b Backoff) Delay(failures int) time.Duration {
	extra := time.Duration(failures-b.Threshold) * b.Step
	if extra > b.Cap {
		extra = b.Cap
	}
	if extra < 0 {
		extra = 0
	}
	return b.Base + extra
}

// succeed records a successful exchange. The next due time advances
// from the previous due time, not from now, so the long-run rate holds
// even when single turns run late.
func (j *job) succeed(at time.Time) (recovered bool) {
	recovered = j.state == StateBackoff

	j.failures = 0
	j.state = StateNormal
	j.nextDue += j.Period

	j.successes++
	j.lastSuccess = at
	j.lastErr = nil

	return recovered
}

// fail records a failed exchange at now.
func (j *job) fail(now time.Duration, b Backoff, err error) (entered bool) {
	j.failures++
	j.failTotal++
	j.lastErr = err

	if j.failures < b.Threshold {
		j.state = StateRetrying
		j.nextDue = now + j.Period/2
		return false
	}

	entered = j.state != StateBackoff
	j.state = StateBackoff
	j.backoffUntil = now + b.Delay(j.failures)
	j.nextDue = j.backoffUntil + j.Period

	return entered
}
