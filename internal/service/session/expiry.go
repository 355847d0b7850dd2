package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/wordl-bot/wordl/internal/events"
	"github.com/wordl-bot/wordl/internal/task"
)

// SweepResult reports what one Sweep did.
type SweepResult struct {
	Finalized int
	Removed   int
	Failed    int
}

// onDeadline runs on the blitz timer goroutine. The finalization is handed to
// the task queue when one is configured, and runs inline when the queue
// refuses it.
func (e *Engine) onDeadline(id uuid.UUID) {
	expire := func(ctx context.Context) error {
		return e.expire(ctx, id)
	}

	if e.tasks != nil {
		err := e.tasks.Enqueue(task.NewFuncTask(task.TaskTypeBlitzExpiry, expire))
		if err == nil {
			return
		}
		e.logger.Warn("failed to enqueue blitz expiry, finalizing inline",
			slog.String("session_id", id.String()),
			slog.String("error", err.Error()))
	}

	if err := expire(context.Background()); err != nil {
		e.logger.Error("failed to finalize expired blitz, will retry on sweep",
			slog.String("session_id", id.String()),
			slog.String("error", err.Error()))
	}
}

// expire finalizes a blitz whose deadline passed. Finalizing an already
// finished or swept session is a no-op.
func (e *Engine) expire(ctx context.Context, id uuid.UUID) error {
	s, err := e.lookup(id)
	if err != nil {
		return nil
	}
	ctx, _ = e.withSession(ctx, s)

	s.mu.Lock()
	fin, err := e.finalizeLocked(ctx, s, events.ReasonExpired)
	s.mu.Unlock()

	e.afterFinish(ctx, fin)
	if err != nil {
		return newServiceError("expire_blitz", "failed to persist summary", err)
	}
	return nil
}

// Sweep removes finished sessions past their retention and retries
// finalization of blitz sessions past their deadline and of quizzes that
// reached their count. Quizzes idle longer than the idle timeout are finalized.
func (e *Engine) Sweep(ctx context.Context) SweepResult {
	now := e.clock.Time()

	e.mu.Lock()
	list := e.snapshotLocked()
	e.mu.Unlock()

	var res SweepResult
	for _, s := range list {
		sctx, log := e.withSession(ctx, s)

		s.mu.Lock()
		if s.finalized.Load() {
			stale := now.Sub(s.finishedAt) >= e.config.FinishedRetention
			s.mu.Unlock()
			if stale {
				e.remove(s)
				res.Removed++
			}
			continue
		}

		var reason events.FinishReason
		switch {
		case s.expired(now):
			reason = events.ReasonExpired
		case s.completeLocked():
			reason = events.ReasonCompleted
		case s.idleLocked(now, e.config.IdleTimeout):
			reason = events.ReasonIdle
		default:
			s.mu.Unlock()
			continue
		}
		fin, err := e.finalizeLocked(sctx, s, reason)
		s.mu.Unlock()

		e.afterFinish(sctx, fin)
		switch {
		case err != nil:
			res.Failed++
			log.Error("sweep failed to finalize session",
				slog.String("reason", string(reason)),
				slog.String("error", err.Error()))
		case fin != nil:
			res.Finalized++
		}
	}

	if res != (SweepResult{}) {
		e.logger.Debug("sweep completed",
			slog.Int("finalized", res.Finalized),
			slog.Int("removed", res.Removed),
			slog.Int("failed", res.Failed))
	}
	return res
}
