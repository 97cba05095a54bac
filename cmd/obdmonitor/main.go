// cmd/obdmonitor/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/obd-monitor/internal/api"
	"github.com/tamzrod/obd-monitor/internal/config"
	"github.com/tamzrod/obd-monitor/internal/display"
	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/poller"
	"github.com/tamzrod/obd-monitor/internal/poller/can"
	"github.com/tamzrod/obd-monitor/internal/report"
	"github.com/tamzrod/obd-monitor/internal/shell"
	"github.com/tamzrod/obd-monitor/internal/status"
	"github.com/tamzrod/obd-monitor/internal/writer"
)

func main() {
	sim := flag.Bool("sim", false, "use the simulated ECU instead of the configured bus")
	withShell := flag.Bool("shell", false, "start the interactive console")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: obdmonitor [-sim] [-shell] <config.yaml>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *sim, *withShell); err != nil {
		fmt.Fprintf(os.Stderr, "obdmonitor: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, sim, withShell bool) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return fmt.Errorf("config env failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	log, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger.SetLogger(log)

	// Everything is constructed before the first goroutine starts, so a
	// build error never leaves half the components running.
	a, err := build(cfg, sim, withShell, log, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	driver := cfg.Bus.Driver
	if sim {
		driver = "sim"
	}
	log.Info("obdmonitor starting",
		"version", cfg.Version,
		"driver", driver,
		"interface", cfg.Bus.Interface,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = a.Run(ctx)
	log.Info("obdmonitor stopped")
	return err
}

// app holds the built components: one runner per goroutine, and the
// closers of the resources they share.
type app struct {
	runners []func(context.Context) error
	closers []func() error
}

func (a *app) add(run func(context.Context) error) {
	a.runners = append(a.runners, run)
}

// Run starts every runner and waits; the first error cancels the rest.
func (a *app) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, run := range a.runners {
		run := run
		g.Go(func() error { return run(ctx) })
	}
	return g.Wait()
}

// Close releases resources in reverse build order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// build constructs the acquisition loop and its consumers without starting
// any of them. On error everything already opened is closed.
func build(cfg *config.Config, sim, withShell bool, log logger.Logger, term io.Writer) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// --------------------
	// Acquisition
	// --------------------

	store := status.NewStore()

	client, closeBus, err := can.Build(cfg.Bus, cfg.Scheduler, sim)
	if err != nil {
		return nil, fmt.Errorf("bus build failed: %w", err)
	}
	a.closers = append(a.closers, closeBus)

	p, err := poller.Build(cfg.Scheduler, client, store, log)
	if err != nil {
		return nil, fmt.Errorf("poller build failed: %w", err)
	}
	a.add(p.Run)

	// --------------------
	// Consumers (read-only on the store)
	// --------------------

	if cfg.HTTP.Listen != "" {
		srv := api.New(api.Config{
			Listen:         cfg.HTTP.Listen,
			StaticDir:      cfg.HTTP.StaticDir,
			StreamInterval: msec(cfg.HTTP.StreamIntervalMs),
		}, store, p, client, log.With("component", "api"))
		a.add(srv.Run)
	}

	if cfg.Display.Enabled {
		if withShell {
			log.Warn("display disabled while the shell owns the terminal")
		} else {
			console := display.NewConsole(term, 1)
			r := display.NewRefresher(console, store,
				msec(cfg.Display.RefreshMs), cfg.Display.Width,
				log.With("component", "display"))
			a.add(func(ctx context.Context) error {
				_ = console.Clear()
				return r.Run(ctx)
			})
		}
	}

	if cfg.Export.Enabled {
		exp, closeExport, err := writer.Build(cfg.Export, store, p.BackoffCount, log)
		if err != nil {
			return nil, fmt.Errorf("export build failed: %w", err)
		}
		a.closers = append(a.closers, closeExport)
		a.add(exp.Run)
	}

	if cfg.Report.Schedule != report.Off {
		rep, err := report.New(cfg.Report.Schedule, store, p, log.With("component", "report"))
		if err != nil {
			return nil, err
		}
		a.add(rep.Run)
	}

	if withShell {
		a.add(shell.New(store, p).Run)
	}

	return a, nil
}

func buildLogger(lc config.LogConfig) (logger.Logger, error) {
	level, err := logger.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}

	switch lc.Backend {
	case "zap":
		return logger.NewZap(level, lc.Dev)
	default:
		return logger.NewSlog(level, false, lc.Dev), nil
	}
}

func msec(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
