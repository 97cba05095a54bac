// internal/poller/options.go
package poller

import (
	"errors"
	"time"

	"github.com/tamzrod/obd-monitor/internal/logger"
)

// settings are the tunables of a Poller.
type settings struct {
	// spacing is the pause after every exchange, successful or not.
	// Defaults to 25 ms.
	spacing time.Duration
	// idle is the pause when no job is eligible.
	// Defaults to 5 ms.
	idle time.Duration
	// stagger offsets the first due time of consecutive catalog entries.
	// Defaults to 10 ms.
	stagger time.Duration

	backoff Backoff
	clock   Clock
	logger  logger.Logger
}

func defaultSettings() *settings {
	return &settings{
		spacing: 25 * time.Millisecond,
		idle:    5 * time.Millisecond,
		stagger: 10 * time.Millisecond,
		backoff: DefaultBackoff(),
		clock:   wallClock{},
		logger:  logger.GetLogger(),
	}
}

// Option represents a functional option for configuring a Poller.
type Option interface {
	apply(*settings) error
}

type optFunc struct {
	name      string
	applyFunc func(*settings) error
}

func (o *optFunc) apply(s *settings) error { return o.applyFunc(s) }

func newOptFunc(name string, f func(*settings) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithSpacing sets the minimum delay between the end of one exchange and
// the next selection. It should be between 1 ms and 1 s.
func WithSpacing(d time.Duration) Option {
	return newOptFunc("WithSpacing", func(s *settings) error {
		if d < time.Millisecond || d > time.Second {
			return errors.New("poller: spacing out of range [1ms, 1s]")
		}
		s.spacing = d
		return nil
	})
}

// WithIdle sets the wait used when no job is eligible.
// It should be between 1 ms and 100 ms.
func WithIdle(d time.Duration) Option {
	return newOptFunc("WithIdle", func(s *settings) error {
		if d < time.Millisecond || d > 100*time.Millisecond {
			return errors.New("poller: idle wait out of range [1ms, 100ms]")
		}
		s.idle = d
		return nil
	})
}

// WithStagger sets the start-up offset between catalog entries.
// Zero makes every job due immediately.
func WithStagger(d time.Duration) Option {
	return newOptFunc("WithStagger", func(s *settings) error {
		if d < 0 {
			return errors.New("poller: stagger must be >= 0")
		}
		s.stagger = d
		return nil
	})
}

// WithBackoff replaces the failure policy.
func WithBackoff(b Backoff) Option {
	return newOptFunc("WithBackoff", func(s *settings) error {
		if err := b.validate(); err != nil {
			return err
		}
		s.backoff = b
		return nil
	})
}

// WithClock replaces the wall clock. Intended for tests and replays.
func WithClock(c Clock) Option {
	return newOptFunc("WithClock", func(s *settings) error {
		if c == nil {
			return errors.New("poller: nil clock")
		}
		s.clock = c
		return nil
	})
}

// WithLogger sets the logger. Defaults to the package logger.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(s *settings) error {
		if l == nil {
			return errors.New("poller: nil logger")
		}
		s.logger = l
		return nil
	})
}
