package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/status"
)

func TestNew_Validation(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()
	cat := []Entry{{obd.PIDEngineRPM, PriorityHigh, PeriodFast}}

	_, err := New(cat, nil, status.NewStore())
	assert.Error(t, err)

	_, err = New(cat, client, nil)
	assert.Error(t, err)

	_, _, err = newTestPoller(nil, client, clock)
	assert.Error(t, err)

	_, _, err = newTestPoller(append(cat, cat[0]), client, clock)
	assert.ErrorContains(t, err, "duplicate pid 0x0C")

	_, _, err = newTestPoller([]Entry{{0x99, PriorityHigh, PeriodFast}}, client, clock)
	assert.ErrorContains(t, err, "no decoder")

	_, _, err = newTestPoller([]Entry{{obd.PIDEngineRPM, PriorityHigh, 0}}, client, clock)
	assert.Error(t, err)

	_, _, err = newTestPoller([]Entry{{obd.PIDEngineRPM, Priority(7), PeriodFast}}, client, clock)
	assert.Error(t, err)

	_, _, err = newTestPoller(cat, client, clock, WithSpacing(0))
	assert.Error(t, err)

	_, _, err = newTestPoller(cat, client, clock, WithIdle(time.Second))
	assert.Error(t, err)

	_, _, err = newTestPoller(cat, client, clock, WithStagger(-1))
	assert.Error(t, err)

	_, _, err = newTestPoller(cat, client, clock, WithBackoff(Backoff{}))
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	require.Len(t, cat, len(obd.PIDs()))

	periods := map[Priority]time.Duration{
		PriorityHigh:   PeriodFast,
		PriorityMedium: PeriodMedium,
		PriorityLow:    PeriodSlow,
	}
	for i, e := range cat {
		assert.Equal(t, periods[e.Priority], e.Period, "pid 0x%02X", e.PID)
		if i > 0 {
			assert.GreaterOrEqual(t, uint8(e.Priority), uint8(cat[i-1].Priority), "catalog is grouped by priority")
		}
	}

	_, _, err := newTestPoller(cat, newFakeClient(), newFakeClock())
	assert.NoError(t, err)
}

func TestNew_StaggersStart(t *testing.T) {
	clock := newFakeClock()
	epoch := clock.Now()

	p, _, err := newTestPoller(DefaultCatalog(), newFakeClient(), clock)
	require.NoError(t, err)

	jobs := p.Jobs()
	require.Len(t, jobs, len(DefaultCatalog()))
	for i, js := range jobs {
		assert.Equal(t, epoch.Add(time.Duration(i)*10*time.Millisecond), js.NextDue)
		assert.Equal(t, StateNormal, js.State)
		assert.Zero(t, js.Failures)
	}
}

func TestPollOnce_IdleWhenNothingDue(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()

	p, store, err := newTestPoller([]Entry{{obd.PIDEngineRPM, PriorityHigh, PeriodFast}}, client, clock)
	require.NoError(t, err)

	require.False(t, p.PollOnce().Idle)

	clock.Advance(50 * time.Millisecond)
	res := p.PollOnce()
	assert.True(t, res.Idle)
	assert.Len(t, client.calls, 1)
	assert.Equal(t, uint64(1), p.Metrics().IdleCount.Load())

	_, seq := store.Load()
	assert.Equal(t, uint64(1), seq)
}

func TestPollOnce_SteadyStateCadence(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()
	client.values[obd.PIDVehicleSpeed] = [4]byte{60}

	p, _, err := newTestPoller([]Entry{{obd.PIDVehicleSpeed, PriorityHigh, PeriodFast}}, client, clock)
	require.NoError(t, err)

	prev, _ := p.Job(obd.PIDVehicleSpeed)
	for i := 0; i < 50; i++ {
		// late by a varying amount; cadence must not drift
		clock.Advance(prev.NextDue.Sub(clock.Now()) + time.Duration(i%7)*time.Millisecond)

		res := p.PollOnce()
		require.NoError(t, res.Err)

		js, _ := p.Job(obd.PIDVehicleSpeed)
		assert.Equal(t, PeriodFast, js.NextDue.Sub(prev.NextDue))
		assert.Zero(t, js.Failures)
		assert.Equal(t, StateNormal, js.State)
		prev = js
	}
	assert.Equal(t, uint64(50), prev.Successes)
}

func TestPollOnce_PublishAccumulates(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()
	client.values[obd.PIDEngineRPM] = [4]byte{0x1A, 0xF8}
	client.values[obd.PIDCoolantTemp] = [4]byte{0x32}

	cat := []Entry{
		{obd.PIDEngineRPM, PriorityHigh, PeriodFast},
		{obd.PIDCoolantTemp, PriorityMedium, PeriodMedium},
	}
	p, store, err := newTestPoller(cat, client, clock, WithStagger(0))
	require.NoError(t, err)

	require.Equal(t, obd.PIDEngineRPM, p.PollOnce().PID)
	assert.Equal(t, uint16(1726), store.Latest().RPM)
	assert.Zero(t, store.Latest().CoolantTemp)

	clock.Advance(25 * time.Millisecond)
	require.Equal(t, obd.PIDCoolantTemp, p.PollOnce().PID)

	snap := store.Latest()
	assert.Equal(t, uint16(1726), snap.RPM, "earlier field survives the next publish")
	assert.Equal(t, int16(10), snap.CoolantTemp)
	assert.Equal(t, clock.Now(), snap.UpdatedAt)
}

func TestPollOnce_FailureDoesNotPublish(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()
	client.fail[obd.PIDEngineRPM] = ErrTimeout

	p, store, err := newTestPoller([]Entry{{obd.PIDEngineRPM, PriorityHigh, PeriodFast}}, client, clock)
	require.NoError(t, err)

	res := p.PollOnce()
	assert.ErrorIs(t, res.Err, ErrTimeout)

	_, seq := store.Load()
	assert.Zero(t, seq)

	js, _ := p.Job(obd.PIDEngineRPM)
	assert.Equal(t, StateRetrying, js.State)
	assert.Equal(t, 1, js.Failures)
	assert.Equal(t, ErrTimeout.Error(), js.LastError)
	assert.Equal(t, uint64(1), p.Metrics().TimeoutCount.Load())
}

func TestPollOnce_BackoffIsPerJob(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()
	client.fail[obd.PIDFuelPressure] = fmt.Errorf("%w: bus off", ErrSendFailure)

	cat := []Entry{
		{obd.PIDFuelPressure, PriorityHigh, PeriodFast},
		{obd.PIDVehicleSpeed, PriorityHigh, PeriodFast},
	}
	p, _, err := newTestPoller(cat, client, clock, WithStagger(0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.cancel = cancel
	clock.stopAt = clock.Now().Add(10 * time.Second)

	require.NoError(t, p.Run(ctx))

	bad, _ := p.Job(obd.PIDFuelPressure)
	good, _ := p.Job(obd.PIDVehicleSpeed)

	assert.Equal(t, StateBackoff, bad.State)
	assert.Equal(t, StateNormal, good.State)
	assert.Equal(t, 1, p.BackoffCount())
	assert.Equal(t, 100, client.count(obd.PIDVehicleSpeed), "healthy job keeps its full cadence")
	assert.Less(t, client.count(obd.PIDFuelPressure), 20)
	assert.Equal(t, uint64(1), p.Metrics().BackoffEntryCount.Load())
	assert.Equal(t, uint64(client.count(obd.PIDFuelPressure)), p.Metrics().SendErrCount.Load())
}

func TestPollOnce_LogsBackoffAndRecovery(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()
	client.fail[obd.PIDBarometric] = ErrTimeout

	log := logger.NewMockLogger()
	log.On("Debug", "pid exchange failed", mock.Anything).Times(4)
	log.On("Warn", "pid entered backoff", mock.Anything).Once()
	log.On("Info", "pid recovered", mock.Anything).Once()

	p, _, err := newTestPoller([]Entry{{obd.PIDBarometric, PriorityMedium, PeriodMedium}}, client, clock, WithLogger(log))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		js, _ := p.Job(obd.PIDBarometric)
		due := js.NextDue
		if js.BackoffUntil.After(due) {
			due = js.BackoffUntil
		}
		clock.Advance(due.Sub(clock.Now()))
		require.Error(t, p.PollOnce().Err)
	}

	js, _ := p.Job(obd.PIDBarometric)
	require.Equal(t, StateBackoff, js.State)
	assert.Equal(t, 2*time.Second, js.BackoffUntil.Sub(clock.Now()))

	// still blocked half way through the backoff
	clock.Advance(time.Second)
	assert.True(t, p.PollOnce().Idle)

	delete(client.fail, obd.PIDBarometric)
	clock.Advance(js.NextDue.Sub(clock.Now()))
	require.NoError(t, p.PollOnce().Err)

	log.AssertExpectations(t)
}

// One HIGH and one LOW job, both due at t=0: HIGH wins the first turn,
// LOW runs as soon as HIGH is no longer due and is never starved.
func TestRun_HighAndLowScenario(t *testing.T) {
	clock := newFakeClock()
	client := newFakeClient()

	cat := []Entry{
		{obd.PIDEngineRPM, PriorityHigh, PeriodFast},
		{obd.PIDAmbientAirTemp, PriorityLow, PeriodSlow},
	}
	p, _, err := newTestPoller(cat, client, clock, WithStagger(0))
	require.NoError(t, err)

	res := p.PollOnce()
	require.Equal(t, obd.PIDEngineRPM, res.PID)

	clock.Advance(time.Millisecond)
	res = p.PollOnce()
	require.Equal(t, obd.PIDAmbientAirTemp, res.PID, "low job runs once high is no longer due")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.cancel = cancel
	clock.stopAt = clock.Now().Add(10*time.Second - time.Millisecond)

	client.calls = nil
	require.NoError(t, p.Run(ctx))

	assert.Equal(t, 99, client.count(obd.PIDEngineRPM))
	assert.Equal(t, 4, client.count(obd.PIDAmbientAirTemp))
}

func TestRun_Pacing(t *testing.T) {
	clock := newFakeClock()
	cat := []Entry{{obd.PIDEngineRPM, PriorityHigh, PeriodFast}}
	p, _, err := newTestPoller(cat, newFakeClient(), clock, WithStagger(0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.cancel = cancel
	clock.stopAt = clock.Now().Add(60 * time.Millisecond)

	require.NoError(t, p.Run(ctx))

	require.GreaterOrEqual(t, len(clock.sleeps), 2)
	assert.Equal(t, 25*time.Millisecond, clock.sleeps[0], "spacing after an exchange")
	for _, d := range clock.sleeps[1:] {
		assert.Equal(t, 5*time.Millisecond, d, "idle pacing")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	p, _, err := newTestPoller(DefaultCatalog(), newFakeClient(), clock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, p.Run(ctx))
	assert.Zero(t, p.Metrics().ExchangeCount.Load())
}

func TestMetrics_Snapshot(t *testing.T) {
	var m Metrics
	m.incExchangeCount()
	m.incSuccessCount()
	m.countErr(ErrTimeout)
	m.countErr(fmt.Errorf("wrapped: %w", ErrSendFailure))
	m.countErr(ErrMismatch)

	assert.Equal(t, MetricsSnapshot{
		Exchanges:   1,
		Successes:   1,
		SendErrors:  1,
		Timeouts:    1,
		OtherErrors: 1,
	}, m.Snapshot())
}
