package longrun

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/longrun/internal/config"
	"github.com/loykin/longrun/internal/history"
	"github.com/loykin/longrun/internal/metrics"
	"github.com/loykin/longrun/internal/operation"
	iapi "github.com/loykin/longrun/internal/server"
	"github.com/loykin/longrun/internal/store"
	storefactory "github.com/loykin/longrun/internal/store/factory"
	"github.com/loykin/longrun/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Status = operation.Status

type Meta = operation.Meta

type Progress = operation.Progress

type Result = operation.Result

type Record = operation.Record

type Store = store.Store

type StoreConfig = store.Config

type HistoryConfig = cfg.HistoryConfig

type HistorySink = history.Sink

type Options = supervisor.Options

// Sentinel errors of the supervisor API.
var (
	ErrNotFound = supervisor.ErrNotFound
	ErrTerminal = supervisor.ErrTerminal
)

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.

type Supervisor struct{ inner *supervisor.Supervisor }

func New(opts Options) (*Supervisor, error) {
	s, err := supervisor.New(opts)
	if err != nil {
		return nil, err
	}
	return &Supervisor{inner: s}, nil
}

// NewMemoryStore returns the in-memory store backend, handy for embedding
// and demos.
func NewMemoryStore() Store { return store.NewMemory() }

// OpenStore builds a durable store from config (memory, sqlite, postgres).
func OpenStore(c StoreConfig) (Store, error) { return storefactory.Open(c) }

func (s *Supervisor) Start(ctx context.Context, duration int, annotations map[string]string) (string, error) {
	return s.inner.Start(ctx, duration, annotations)
}
func (s *Supervisor) Pause(ctx context.Context, id string) error  { return s.inner.Pause(ctx, id) }
func (s *Supervisor) Resume(ctx context.Context, id string) error { return s.inner.Resume(ctx, id) }
func (s *Supervisor) Cancel(ctx context.Context, id string) error { return s.inner.Cancel(ctx, id) }
func (s *Supervisor) Get(ctx context.Context, id string) (Record, error) {
	return s.inner.Get(ctx, id)
}
func (s *Supervisor) List(ctx context.Context) ([]Record, error) { return s.inner.List(ctx) }
func (s *Supervisor) SetHistorySinks(sinks ...HistorySink)       { s.inner.SetHistorySinks(sinks...) }
func (s *Supervisor) ReconcileOnce(ctx context.Context) error    { return s.inner.ReconcileOnce(ctx) }
func (s *Supervisor) StartReconciler(interval time.Duration)     { s.inner.StartReconciler(interval) }
func (s *Supervisor) StopReconciler()                            { s.inner.StopReconciler() }
func (s *Supervisor) Shutdown(ctx context.Context)               { s.inner.Shutdown(ctx) }

func LoadConfig(path string) (cfg.Config, error) {
	return cfg.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the internal API using the given supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor, health func() error) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner, health)
}

// NewHTTPHandler returns the API handler for mounting into an existing
// server or framework (chi, echo, plain mux).
func NewHTTPHandler(basePath string, s *Supervisor, health func() error) http.Handler {
	return iapi.NewRouter(s.inner, basePath, health).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
