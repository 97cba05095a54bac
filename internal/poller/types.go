// internal/poller/types.go
package poller

import (
	"fmt"
	"time"
)

// Priority orders jobs competing for the same bus turn.
// Lower values win.
type Priority uint8

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

// State is the failure state of one job.
type State uint8

const (
	StateNormal State = iota
	StateRetrying
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateRetrying:
		return "retrying"
	case StateBackoff:
		return "backoff"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText renders the state by name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalText renders the priority by name in JSON and YAML.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Entry is one catalog line: what to request and how often.
type Entry struct {
	PID      uint8
	Priority Priority
	Period   time.Duration
}

// job is the mutable scheduling record of one catalog entry.
// Times are offsets from the poller epoch.
type job struct {
	Entry

	nextDue      time.Duration
	backoffUntil time.Duration
	failures     int
	state        State

	successes   uint64
	failTotal   uint64
	lastSuccess time.Time
	lastErr     error
}

// JobStatus is a read-only copy of one job's scheduling state.
type JobStatus struct {
	PID          uint8     `json:"pid"`
	Name         string    `json:"name"`
	Priority     Priority  `json:"priority"`
	PeriodMs     int64     `json:"period_ms"`
	State        State     `json:"state"`
	Failures     int       `json:"failures"`
	Successes    uint64    `json:"successes"`
	FailTotal    uint64    `json:"fail_total"`
	NextDue      time.Time `json:"next_due"`
	BackoffUntil time.Time `json:"backoff_until,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// PollResult is the outcome of one scheduler iteration.
type PollResult struct {
	At   time.Time
	Idle bool // no job was eligible

	PID uint8
	Err error // non-nil means the exchange failed
}
