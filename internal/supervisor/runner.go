package supervisor

import (
	"context"
	"time"

	"github.com/loykin/longrun/internal/history"
	"github.com/loykin/longrun/internal/metrics"
	"github.com/loykin/longrun/internal/operation"
	"github.com/loykin/longrun/internal/store"
)

// runOperation is the per-operation worker loop. It re-reads the meta record
// at every iteration, so a pause or cancel written by any process takes
// effect at the next unit boundary; the wake channel only shortens the wait
// while paused. Context cancellation (Shutdown) exits without finalizing,
// leaving the persisted state for the reconciler.
func (s *Supervisor) runOperation(ctx context.Context, id string, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("operation panicked", "id", id, "panic", r)
			s.finalize(id, operation.StatusFailed)
		}
		s.mu.Lock()
		delete(s.entries, id)
		n := len(s.entries)
		s.mu.Unlock()
		metrics.SetRunning(n)
		close(e.done)
	}()

	for {
		var meta operation.Meta
		if err := s.st.Read(ctx, operation.MetaKey(id), &meta); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("runner meta read failed", "id", id, "err", err)
			return
		}

		switch meta.Status {
		case operation.StatusPaused:
			select {
			case <-ctx.Done():
				return
			case <-e.wake:
			case <-time.After(s.poll):
			}
			continue
		case operation.StatusCancelled:
			s.finalize(id, operation.StatusCancelled)
			return
		case operation.StatusRunning:
		default:
			// Finalized externally, nothing left to do.
			return
		}

		var prog operation.Progress
		if err := s.st.Read(ctx, operation.ProgressKey(id), &prog); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("runner progress read failed", "id", id, "err", err)
			return
		}

		if prog.Step >= prog.Total {
			// A cancel may have landed while the last unit ran.
			var again operation.Meta
			if err := s.st.Read(ctx, operation.MetaKey(id), &again); err == nil &&
				again.Status == operation.StatusCancelled {
				s.finalize(id, operation.StatusCancelled)
				return
			}
			s.finalize(id, operation.StatusFinished)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.step):
		}

		prog.Step++
		prog.UpdatedAt = time.Now().UTC()
		if err := s.st.Write(ctx, operation.ProgressKey(id), prog); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("runner progress write failed", "id", id, "err", err)
			return
		}
		metrics.IncHeartbeat()
	}
}

// finalize writes the terminal meta status and the Result in one
// transaction. It uses a background context so a shutdown in flight cannot
// leave the two records disagreeing.
func (s *Supervisor) finalize(id string, st operation.Status) {
	ctx := context.Background()
	now := time.Now().UTC()

	var meta operation.Meta
	if err := s.st.Read(ctx, operation.MetaKey(id), &meta); err != nil {
		s.logger.Error("finalize meta read failed", "id", id, "err", err)
		meta = operation.Meta{Status: st, CreatedAt: now}
	}
	if meta.Status.Terminal() && meta.Status != st {
		if meta.Status != operation.StatusCancelled {
			// Already finalized with a different outcome; leave it alone.
			return
		}
		// A cancel won the race; honor it over finished/failed.
		st = meta.Status
	}
	meta.Status = st

	var prog operation.Progress
	_ = s.st.Read(ctx, operation.ProgressKey(id), &prog)

	res := operation.Result{Status: st, CompletedAt: now}
	err := s.st.WriteBatch(ctx, []store.KV{
		{Key: operation.MetaKey(id), Value: meta},
		{Key: operation.ResultKey(id), Value: res},
	})
	if err != nil {
		s.logger.Error("finalize write failed", "id", id, "status", st, "err", err)
		return
	}

	switch st {
	case operation.StatusCancelled:
		metrics.IncCancelled()
		s.emit(history.EventCancelled, id, st, prog.Step, prog.Total)
		s.logger.Info("operation cancelled", "id", id, "step", prog.Step)
	case operation.StatusFinished:
		metrics.IncFinished()
		s.emit(history.EventFinished, id, st, prog.Step, prog.Total)
		s.logger.Info("operation finished", "id", id, "step", prog.Step)
	case operation.StatusFailed:
		metrics.IncFailed()
		s.emit(history.EventFailed, id, st, prog.Step, prog.Total)
		s.logger.Warn("operation failed", "id", id, "step", prog.Step)
	}
}
