// internal/report/report.go
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/poller"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// Off disables the periodic summary.
const Off = "off"

// parser accepts the five standard fields and @descriptors.
var parser = cron.NewParser(cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Source is the scheduler state summarized in each report.
type Source interface {
	Metrics() *poller.Metrics
	BackoffCount() int
}

// Reporter logs an acquisition summary on a cron schedule.
type Reporter struct {
	sched  cron.Schedule
	store  *status.Store
	src    Source
	now    func() time.Time
	logger logger.Logger
}

func New(schedule string, store *status.Store, src Source, log logger.Logger) (*Reporter, error) {
	if store == nil || src == nil {
		return nil, fmt.Errorf("report: store and source required")
	}
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("report: schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Reporter{
		sched:  sched,
		store:  store,
		src:    src,
		now:    time.Now,
		logger: log,
	}, nil
}

// Next returns the first report time after t.
func (r *Reporter) Next(t time.Time) time.Time {
	return r.sched.Next(t)
}

// Report logs one summary line.
func (r *Reporter) Report() {
	snap, seq := r.store.Load()
	m := r.src.Metrics().Snapshot()

	kv := []any{
		"publishes", seq,
		"exchanges", m.Exchanges,
		"successes", m.Successes,
		"timeouts", m.Timeouts,
		"send_errors", m.SendErrors,
		"backoff_jobs", r.src.BackoffCount(),
	}
	if seq > 0 {
		kv = append(kv,
			"age", r.now().Sub(snap.UpdatedAt).Round(time.Millisecond),
			"rpm", snap.RPM,
			"speed", snap.Speed,
			"coolant", snap.CoolantTemp,
			"batt", snap.BatteryVoltage,
			"dtc", snap.DTCCount,
		)
	}

	r.logger.Info("acquisition summary", kv...)
}

// Run reports on schedule until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{r.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{r.logger})),
	)
	c.Schedule(r.sched, cron.FuncJob(r.Report))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
