package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/longrun/internal/history"
	"github.com/loykin/longrun/internal/metrics"
	"github.com/loykin/longrun/internal/operation"
	"github.com/loykin/longrun/internal/store"
)

var (
	// ErrNotFound is returned for signals addressed to an unknown operation id.
	ErrNotFound = errors.New("supervisor: operation not found")
	// ErrTerminal is returned for signals addressed to a finalized operation.
	ErrTerminal = errors.New("supervisor: operation already terminal")
)

const (
	DefaultStepInterval = time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultStaleAfter   = 30 * time.Second
)

// Options configures a Supervisor. Store is required; zero durations take
// the package defaults.
type Options struct {
	Store store.Store
	// StepInterval is the length of one simulated work unit.
	StepInterval time.Duration
	// PollInterval bounds how long a paused runner waits between store reads
	// when no wake signal arrives.
	PollInterval time.Duration
	// StaleAfter is the progress-heartbeat age past which the reconciler
	// finalizes an operation with no live runner as failed.
	StaleAfter time.Duration
	Logger     *slog.Logger
	Sinks      []history.Sink
}

// Supervisor starts, signals, and monitors long-running operations.
// The store is the single source of truth for operation state; the entries
// map only tracks live runner goroutines for wake delivery and shutdown.
type Supervisor struct {
	mu      sync.RWMutex
	st      store.Store
	step    time.Duration
	poll    time.Duration
	stale   time.Duration
	logger  *slog.Logger
	sinks   []history.Sink
	entries map[string]*entry

	reconStop chan struct{}

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

type entry struct {
	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// nudge delivers a wake signal without blocking; a pending signal is enough.
func (e *entry) nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func New(opts Options) (*Supervisor, error) {
	if opts.Store == nil {
		return nil, errors.New("supervisor: store is required")
	}
	if opts.StepInterval <= 0 {
		opts.StepInterval = DefaultStepInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		st:         opts.Store,
		step:       opts.StepInterval,
		poll:       opts.PollInterval,
		stale:      opts.StaleAfter,
		logger:     opts.Logger,
		sinks:      append([]history.Sink(nil), opts.Sinks...),
		entries:    make(map[string]*entry),
		baseCtx:    ctx,
		baseCancel: cancel,
	}, nil
}

// SetHistorySinks configures external history sinks (SQL, ClickHouse, etc.).
// Passing no sinks clears the list.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.mu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.mu.Unlock()
}

// Start creates a new operation of the given duration (in work units) and
// spawns its runner. It returns as soon as the initial records are durable;
// it never waits on the runner. A duration below 1 is clamped to 1.
func (s *Supervisor) Start(ctx context.Context, duration int, annotations map[string]string) (string, error) {
	if duration < 1 {
		duration = 1
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	meta := operation.Meta{
		Status:      operation.StatusRunning,
		Duration:    duration,
		CreatedAt:   now,
		Annotations: annotations,
	}
	prog := operation.Progress{Step: 0, Total: duration, UpdatedAt: now}
	err := s.st.WriteBatch(ctx, []store.KV{
		{Key: operation.MetaKey(id), Value: meta},
		{Key: operation.ProgressKey(id), Value: prog},
	})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", id, err)
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	e := &entry{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	s.mu.Lock()
	s.entries[id] = e
	n := len(s.entries)
	s.mu.Unlock()

	metrics.IncStarted()
	metrics.SetRunning(n)
	s.emit(history.EventStarted, id, operation.StatusRunning, 0, duration)
	s.logger.Info("operation started", "id", id, "duration", duration)

	go s.runOperation(runCtx, id, e)
	return id, nil
}

// Pause requests that the operation stop consuming work units. Pausing an
// already paused operation is a no-op success.
func (s *Supervisor) Pause(ctx context.Context, id string) error {
	return s.signal(ctx, id, operation.StatusPaused)
}

// Resume lets a paused operation continue. Resuming a running operation is
// a no-op success.
func (s *Supervisor) Resume(ctx context.Context, id string) error {
	return s.signal(ctx, id, operation.StatusRunning)
}

// Cancel requests termination. The runner finalizes the operation at its
// next status check and writes the cancelled Result.
func (s *Supervisor) Cancel(ctx context.Context, id string) error {
	return s.signal(ctx, id, operation.StatusCancelled)
}

func (s *Supervisor) signal(ctx context.Context, id string, to operation.Status) error {
	var meta operation.Meta
	if err := s.st.Read(ctx, operation.MetaKey(id), &meta); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("signal %s: %w", id, err)
	}
	if meta.Status.Terminal() {
		return ErrTerminal
	}
	if meta.Status == to {
		return nil
	}
	if !operation.CanTransition(meta.Status, to) {
		return ErrTerminal
	}
	meta.Status = to
	if err := s.st.Write(ctx, operation.MetaKey(id), meta); err != nil {
		return fmt.Errorf("signal %s: %w", id, err)
	}

	var prog operation.Progress
	_ = s.st.Read(ctx, operation.ProgressKey(id), &prog)
	switch to {
	case operation.StatusPaused:
		metrics.IncPaused()
		s.emit(history.EventPaused, id, to, prog.Step, prog.Total)
		s.logger.Info("operation paused", "id", id, "step", prog.Step)
	case operation.StatusRunning:
		metrics.IncResumed()
		s.emit(history.EventResumed, id, to, prog.Step, prog.Total)
		s.logger.Info("operation resumed", "id", id, "step", prog.Step)
	case operation.StatusCancelled:
		metrics.IncCancelRequested()
		s.emit(history.EventCancelRequested, id, to, prog.Step, prog.Total)
		s.logger.Info("operation cancel requested", "id", id, "step", prog.Step)
	}

	s.mu.RLock()
	e := s.entries[id]
	s.mu.RUnlock()
	if e != nil {
		e.nudge()
	}
	return nil
}

// Get returns the joined record for one operation.
func (s *Supervisor) Get(ctx context.Context, id string) (operation.Record, error) {
	var meta operation.Meta
	if err := s.st.Read(ctx, operation.MetaKey(id), &meta); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return operation.Record{}, ErrNotFound
		}
		return operation.Record{}, err
	}
	rec := operation.Record{ID: id, Meta: &meta}
	var prog operation.Progress
	if err := s.st.Read(ctx, operation.ProgressKey(id), &prog); err == nil {
		rec.Progress = &prog
	}
	var res operation.Result
	if err := s.st.Read(ctx, operation.ResultKey(id), &res); err == nil {
		rec.Result = &res
	}
	return rec, nil
}

// List scans the whole store and joins the three sub-records per operation.
// A meta record that no longer decodes is reported with status "unknown"
// instead of failing the enumeration.
func (s *Supervisor) List(ctx context.Context) ([]operation.Record, error) {
	all, err := s.st.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	var out []operation.Record
	for key, raw := range all {
		id, ok := operation.ParseMetaKey(key)
		if !ok {
			continue
		}
		rec := operation.Record{ID: id}
		var meta operation.Meta
		if err := json.Unmarshal(raw, &meta); err != nil || meta.Status == "" {
			s.logger.Warn("undecodable meta record", "id", id, "err", err)
			rec.Meta = &operation.Meta{Status: operation.StatusUnknown}
			out = append(out, rec)
			continue
		}
		rec.Meta = &meta
		if praw, ok := all[operation.ProgressKey(id)]; ok {
			var prog operation.Progress
			if err := json.Unmarshal(praw, &prog); err == nil {
				rec.Progress = &prog
			}
		}
		if rraw, ok := all[operation.ResultKey(id)]; ok {
			var res operation.Result
			if err := json.Unmarshal(rraw, &res); err == nil {
				rec.Result = &res
			}
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Meta.CreatedAt.Equal(b.Meta.CreatedAt) {
			return a.ID < b.ID
		}
		return a.Meta.CreatedAt.Before(b.Meta.CreatedAt)
	})
	return out, nil
}

// ReconcileOnce finalizes operations that claim to be live but have no
// runner and a stale progress heartbeat. This catches runners lost to a
// crash or panic that escaped the in-runner guard.
func (s *Supervisor) ReconcileOnce(ctx context.Context) error {
	recs, err := s.List(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, rec := range recs {
		st := rec.Meta.Status
		if st != operation.StatusRunning && st != operation.StatusPaused {
			continue
		}
		s.mu.RLock()
		_, live := s.entries[rec.ID]
		s.mu.RUnlock()
		if live {
			continue
		}
		heartbeat := rec.Meta.CreatedAt
		if rec.Progress != nil && !rec.Progress.UpdatedAt.IsZero() {
			heartbeat = rec.Progress.UpdatedAt
		}
		if now.Sub(heartbeat) < s.stale {
			continue
		}
		s.logger.Warn("finalizing stuck operation", "id", rec.ID, "status", st, "heartbeat", heartbeat)
		s.finalize(rec.ID, operation.StatusFailed)
	}
	return nil
}

// StartReconciler runs ReconcileOnce every interval until StopReconciler.
func (s *Supervisor) StartReconciler(interval time.Duration) {
	s.mu.Lock()
	if s.reconStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.reconStop = stop
	s.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := s.ReconcileOnce(context.Background()); err != nil {
					s.logger.Error("reconcile", "err", err)
				}
			}
		}
	}()
}

// StopReconciler stops the periodic reconciler if running.
func (s *Supervisor) StopReconciler() {
	s.mu.Lock()
	if s.reconStop != nil {
		close(s.reconStop)
		s.reconStop = nil
	}
	s.mu.Unlock()
}

// Shutdown cancels all runners cooperatively and waits briefly for them to
// exit. Unfinished operations keep their persisted state; a later
// reconciler run (or restart) deals with them.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.StopReconciler()
	s.baseCancel()

	s.mu.RLock()
	dones := make([]chan struct{}, 0, len(s.entries))
	for _, e := range s.entries {
		dones = append(dones, e.done)
	}
	s.mu.RUnlock()

	deadline := time.After(2 * time.Second)
	for _, done := range dones {
		select {
		case <-done:
		case <-deadline:
			s.logger.Warn("shutdown timed out waiting for runners")
			return
		case <-ctx.Done():
			return
		}
	}
}

// emit fans an event out to the configured sinks, best effort.
func (s *Supervisor) emit(t history.EventType, id string, st operation.Status, step, total int) {
	s.mu.RLock()
	sinks := append([]history.Sink(nil), s.sinks...)
	s.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}
	evt := history.Event{
		Type:        t,
		OccurredAt:  time.Now().UTC(),
		OperationID: id,
		Status:      st,
		Step:        step,
		Total:       total,
	}
	for _, sink := range sinks {
		if err := sink.Send(context.Background(), evt); err != nil {
			s.logger.Debug("history sink send failed", "type", t, "id", id, "err", err)
		}
	}
}
