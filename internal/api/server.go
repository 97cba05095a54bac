// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/poller"
	"github.com/tamzrod/obd-monitor/internal/poller/can"
	"github.com/tamzrod/obd-monitor/internal/status"
)

const shutdownTimeout = 5 * time.Second

// JobSource exposes the acquisition scheduler state.
type JobSource interface {
	Jobs() []poller.JobStatus
	Job(pid uint8) (poller.JobStatus, bool)
	BackoffCount() int
	Metrics() *poller.Metrics
}

// BusSource exposes the exchange counters.
type BusSource interface {
	Metrics() *can.Metrics
}

type Config struct {
	Listen         string
	StaticDir      string
	StreamInterval time.Duration
}

// Server is the read-only network surface over the snapshot store.
type Server struct {
	cfg    Config
	store  *status.Store
	jobs   JobSource
	bus    BusSource
	logger logger.Logger
	router chi.Router

	done     chan struct{}
	doneOnce sync.Once
}

// New builds the router. jobs and bus may be nil.
func New(cfg Config, store *status.Store, jobs JobSource, bus BusSource, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 200 * time.Millisecond
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		jobs:   jobs,
		bus:    bus,
		logger: log,
		done:   make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/data", s.handleData)
	r.Get("/ws/data", s.handleStream)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.handleJobs)
		r.Get("/{pid}", s.handleJob)
	})
	r.Get("/metrics", s.handleMetrics)

	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP/1.1 and cleartext HTTP/2 until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           h2c.NewHandler(s.router, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.stopStreams()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
	}

	s.stopStreams()

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}

	s.logger.Info("api stopped")
	return nil
}

func (s *Server) stopStreams() {
	s.doneOnce.Do(func() { close(s.done) })
}

// ---- handlers ----

func noCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Latest()
	noCache(w)

	if r.URL.Query().Get("format") == "text" {
		render.PlainText(w, r, FormatText(snap))
		return
	}
	render.JSON(w, r, NewData(snap))
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		render.JSON(w, r, []poller.JobStatus{})
		return
	}
	render.JSON(w, r, s.jobs.Jobs())
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseUint(chi.URLParam(r, "pid"), 0, 8)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(fmt.Errorf("pid: %w", err)))
		return
	}
	if s.jobs == nil {
		render.Render(w, r, ErrNotFound)
		return
	}

	js, ok := s.jobs.Job(uint8(pid))
	if !ok {
		render.Render(w, r, ErrNotFound)
		return
	}
	render.JSON(w, r, js)
}

// MetricsResponse is the /metrics document.
type MetricsResponse struct {
	Scheduler   *poller.MetricsSnapshot `json:"scheduler,omitempty"`
	Bus         *can.MetricsSnapshot    `json:"bus,omitempty"`
	BackoffJobs int                     `json:"backoff_jobs"`
	Sequence    uint64                  `json:"sequence"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var resp MetricsResponse

	if s.jobs != nil {
		m := s.jobs.Metrics().Snapshot()
		resp.Scheduler = &m
		resp.BackoffJobs = s.jobs.BackoffCount()
	}
	if s.bus != nil {
		m := s.bus.Metrics().Snapshot()
		resp.Bus = &m
	}
	_, resp.Sequence = s.store.Load()

	render.JSON(w, r, resp)
}

// requestLogger logs each request at debug level through the
// application logger.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				log.Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"proto", r.Proto,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
