package poller

import (
	"context"
	"sync"
	"time"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/status"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	stopAt time.Time
	cancel context.CancelFunc
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sleep advances time and cancels the run once stopAt is reached.
func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	stop := !c.stopAt.IsZero() && !c.now.Before(c.stopAt)
	c.mu.Unlock()

	if stop && c.cancel != nil {
		c.cancel()
	}
	return ctx.Err()
}

type fakeClient struct {
	clock   *fakeClock
	latency time.Duration
	fail    map[uint8]error
	values  map[uint8][4]byte
	calls   []uint8
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		fail:   map[uint8]error{},
		values: map[uint8][4]byte{},
	}
}

func (c *fakeClient) ReadPID(pid uint8) ([4]byte, error) {
	c.calls = append(c.calls, pid)
	if c.clock != nil && c.latency > 0 {
		c.clock.Advance(c.latency)
	}
	if err := c.fail[pid]; err != nil {
		return [4]byte{}, err
	}
	return c.values[pid], nil
}

func (c *fakeClient) count(pid uint8) int {
	n := 0
	for _, p := range c.calls {
		if p == pid {
			n++
		}
	}
	return n
}

func newTestPoller(catalog []Entry, client Client, clock *fakeClock, opts ...Option) (*Poller, *status.Store, error) {
	store := status.NewStore()
	opts = append([]Option{WithClock(clock), WithLogger(logger.Discard())}, opts...)
	p, err := New(catalog, client, store, opts...)
	return p, store, err
}
