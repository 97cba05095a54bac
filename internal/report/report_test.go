package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/poller"
	"github.com/tamzrod/obd-monitor/internal/status"
)

type fakeSource struct {
	m       poller.Metrics
	backoff int
}

func (f *fakeSource) Metrics() *poller.Metrics { return &f.m }
func (f *fakeSource) BackoffCount() int        { return f.backoff }

func TestNew_Schedule(t *testing.T) {
	src := &fakeSource{}

	r, err := New("@every 1m", status.NewStore(), src, logger.Discard())
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Minute), r.Next(at))

	r, err = New("*/5 * * * *", status.NewStore(), src, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, at.Add(5*time.Minute), r.Next(at))

	_, err = New("every minute", status.NewStore(), src, logger.Discard())
	assert.Error(t, err)

	_, err = New("@every 1m", nil, src, logger.Discard())
	assert.Error(t, err)
}

func TestReport_LogsSummary(t *testing.T) {
	store := status.NewStore()
	src := &fakeSource{backoff: 2}
	src.m.ExchangeCount.Add(10)

	log := logger.NewMockLogger()
	log.On("Info", "acquisition summary", mock.MatchedBy(func(kv []any) bool {
		return len(kv) == 12
	})).Once()
	log.On("Info", "acquisition summary", mock.MatchedBy(func(kv []any) bool {
		return len(kv) == 24 && kv[14] == "rpm" && kv[15] == uint16(900)
	})).Once()

	r, err := New("@every 1m", store, src, log)
	require.NoError(t, err)

	r.Report()

	now := time.Unix(2000, 0)
	r.now = func() time.Time { return now }
	store.Publish(obd.Snapshot{RPM: 900, UpdatedAt: now.Add(-time.Second)})
	r.Report()

	log.AssertExpectations(t)
}

func TestRun_StopsOnCancel(t *testing.T) {
	r, err := New("@every 1s", status.NewStore(), &fakeSource{}, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop")
	}
}
