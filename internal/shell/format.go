// internal/shell/format.go
package shell

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/poller"
)

func formatSnapshot(s obd.Snapshot, seq uint64) string {
	if seq == 0 {
		return "no data yet\n"
	}

	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, f := range s.Fields() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, strconv.FormatFloat(f.Value, 'f', f.Decimals, 64), f.Unit)
	}
	fmt.Fprintf(tw, "updated\t%s\t\n", s.UpdatedAt.Format(time.RFC3339Nano))
	tw.Flush()
	return b.String()
}

func formatJobs(jobs []poller.JobStatus) string {
	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PID\tNAME\tPRIO\tPERIOD\tSTATE\tFAIL\tOK\tLAST ERROR")
	for _, j := range jobs {
		fmt.Fprintf(tw, "0x%02X\t%s\t%s\t%dms\t%s\t%d\t%d\t%s\n",
			j.PID, j.Name, j.Priority, j.PeriodMs, j.State, j.Failures, j.Successes, j.LastError)
	}
	tw.Flush()
	return b.String()
}

func formatMetrics(m poller.MetricsSnapshot, backoff int) string {
	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "exchanges\t%d\n", m.Exchanges)
	fmt.Fprintf(tw, "successes\t%d\n", m.Successes)
	fmt.Fprintf(tw, "timeouts\t%d\n", m.Timeouts)
	fmt.Fprintf(tw, "send errors\t%d\n", m.SendErrors)
	fmt.Fprintf(tw, "other errors\t%d\n", m.OtherErrors)
	fmt.Fprintf(tw, "idle turns\t%d\n", m.Idle)
	fmt.Fprintf(tw, "backoff entries\t%d\n", m.BackoffEnters)
	fmt.Fprintf(tw, "publishes\t%d\n", m.Publishes)
	fmt.Fprintf(tw, "in backoff\t%d\n", backoff)
	tw.Flush()
	return b.String()
}
