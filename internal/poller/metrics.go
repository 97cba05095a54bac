// internal/poller/metrics.go
package poller

import (
	"errors"
	"sync/atomic"
)

// Metrics contains atomic counters of the acquisition loop.
type Metrics struct {
	// ExchangeCount indicates the number of request/response exchanges attempted.
	ExchangeCount atomic.Uint64
	// SuccessCount indicates the number of decoded responses.
	SuccessCount atomic.Uint64
	// SendErrCount indicates the number of requests the bus refused.
	SendErrCount atomic.Uint64
	// TimeoutCount indicates the number of exchanges without a matching response.
	TimeoutCount atomic.Uint64
	// OtherErrCount indicates failures outside the exchange taxonomy.
	OtherErrCount atomic.Uint64
	// IdleCount indicates the number of turns with no eligible job.
	IdleCount atomic.Uint64
	// BackoffEntryCount indicates how often a job entered backoff.
	BackoffEntryCount atomic.Uint64
	// PublishCount indicates the number of snapshot publications.
	PublishCount atomic.Uint64
}

// MetricsSnapshot is a plain copy of Metrics.
type MetricsSnapshot struct {
	Exchanges     uint64 `json:"exchanges"`
	Successes     uint64 `json:"successes"`
	SendErrors    uint64 `json:"send_errors"`
	Timeouts      uint64 `json:"timeouts"`
	OtherErrors   uint64 `json:"other_errors"`
	Idle          uint64 `json:"idle"`
	BackoffEnters uint64 `json:"backoff_enters"`
	Publishes     uint64 `json:"publishes"`
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Exchanges:     m.ExchangeCount.Load(),
		Successes:     m.SuccessCount.Load(),
		SendErrors:    m.SendErrCount.Load(),
		Timeouts:      m.TimeoutCount.Load(),
		OtherErrors:   m.OtherErrCount.Load(),
		Idle:          m.IdleCount.Load(),
		BackoffEnters: m.BackoffEntryCount.Load(),
		Publishes:     m.PublishCount.Load(),
	}
}

func (m *Metrics) incExchangeCount() {
	m.ExchangeCount.Add(1)
}

func (m *Metrics) incSuccessCount() {
	m.SuccessCount.Add(1)
}

func (m *Metrics) incIdleCount() {
	m.IdleCount.Add(1)
}

func (m *Metrics) incBackoffEntryCount() {
	m.BackoffEntryCount.Add(1)
}

func (m *Metrics) incPublishCount() {
	m.PublishCount.Add(1)
}

func (m *Metrics) countErr(err error) {
	switch {
	case errors.Is(err, ErrSendFailure):
		m.SendErrCount.Add(1)
	case errors.Is(err, ErrTimeout):
		m.TimeoutCount.Add(1)
	default:
		m.OtherErrCount.Add(1)
	}
}
