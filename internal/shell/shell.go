// internal/shell/shell.go
package shell

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell/v2"

	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/poller"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// Source is the scheduler state the shell can inspect.
type Source interface {
	Jobs() []poller.JobStatus
	Job(pid uint8) (poller.JobStatus, bool)
	BackoffCount() int
	Metrics() *poller.Metrics
}

// Shell is a read-only operator console.
type Shell struct {
	sh *ishell.Shell
}

func New(store *status.Store, src Source) *Shell {
	sh := ishell.New()
	sh.SetPrompt("obd> ")
	sh.Println("OBD monitor shell")

	pidNames := func([]string) []string {
		out := make([]string, 0, len(obd.PIDs()))
		for _, pid := range obd.PIDs() {
			out = append(out, fmt.Sprintf("0x%02X", pid))
		}
		return out
	}

	sh.AddCmd(&ishell.Cmd{
		Name: "snapshot",
		Help: "print the latest decoded values",
		Func: func(c *ishell.Context) {
			snap, seq := store.Load()
			c.Print(formatSnapshot(snap, seq))
		},
	})

	sh.AddCmd(&ishell.Cmd{
		Name: "jobs",
		Help: "list the scheduler state of every pid",
		Func: func(c *ishell.Context) {
			c.Print(formatJobs(src.Jobs()))
		},
	})

	sh.AddCmd(&ishell.Cmd{
		Name:      "job",
		Help:      "job <pid>",
		Completer: pidNames,
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: job <pid>")
				return
			}
			pid, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(err)
				return
			}
			js, ok := src.Job(uint8(pid))
			if !ok {
				c.Printf("pid 0x%02X is not scheduled\n", pid)
				return
			}
			c.Print(formatJobs([]poller.JobStatus{js}))
		},
	})

	sh.AddCmd(&ishell.Cmd{
		Name: "metrics",
		Help: "print acquisition counters",
		Func: func(c *ishell.Context) {
			c.Print(formatMetrics(src.Metrics().Snapshot(), src.BackoffCount()))
		},
	})

	return &Shell{sh: sh}
}

// Run serves the console until the operator exits or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.sh.Start()

	stopped := make(chan struct{})
	go func() {
		s.sh.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.sh.Stop()
		s.sh.Close()
	case <-stopped:
	}
	return nil
}
