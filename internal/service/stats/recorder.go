package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wordl-bot/wordl/internal/cache"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/domain/srs"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

// Answer is one scored answer to record.
type Answer struct {
	UserID  int64
	WordID  int64
	Prompt  string // word source text as shown; the aggregate value
	Correct bool
	Kind    domain.SessionKind
}

// AnswerRecord is what recording an answer changed.
type AnswerRecord struct {
	PointsDelta int
	Points      int
	// Outcome is nil when the word was gone or its mastery fields were invalid.
	Outcome *domain.ReviewOutcome
}

// Recorder appends stats events and applies their side effects atomically.
type Recorder struct {
	stores    store.Stores
	scheduler srs.Service
	cache     cache.Invalidator
	clock     domain.Clock
	points    Points
	logger    *slog.Logger
}

// NewRecorder creates a Recorder. It panics if scheduler or invalidator is nil.
func NewRecorder(
	stores store.Stores,
	scheduler srs.Service,
	invalidator cache.Invalidator,
	clock domain.Clock,
	points Points,
	log *slog.Logger,
) *Recorder {
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if invalidator == nil {
		panic("invalidator cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		stores:    stores,
		scheduler: scheduler,
		cache:     invalidator,
		clock:     clock,
		points:    points,
		logger:    log.With(slog.String("component", "stats_recorder")),
	}
}

// Points returns the recorder's points table.
func (r *Recorder) Points() Points {
	return r.points
}

// RecordAnswer appends the answer event, applies the scheduler outcome to the
// word row, folds the answer into the (user, prompt, kind) aggregate and
// adjusts the user's points, all in one transaction.
//
// A word deleted in the meantime still gets its event, aggregate and points;
// only the word-row update is skipped. A word with invalid mastery fields is
// logged and left unscheduled.
func (r *Recorder) RecordAnswer(ctx context.Context, a Answer) (*AnswerRecord, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)
	today := r.clock.Today()
	rec := &AnswerRecord{PointsDelta: r.points.ForAnswer(a.Correct, a.Kind)}

	var word *domain.Word
	err := r.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		word = nil
		rec.Outcome = nil

		w, err := tx.Words.GetByID(ctx, a.WordID)
		switch {
		case errors.Is(err, store.ErrWordNotFound):
			log.Info("answered word no longer exists",
				slog.Int64("word_id", a.WordID),
				slog.Int64("user_id", a.UserID))
		case err != nil:
			return fmt.Errorf("load word: %w", err)
		default:
			word = w
		}

		event, err := domain.NewStatsEvent(a.UserID, a.WordID, domain.AnswerAction(a.Correct), r.clock)
		if err != nil {
			return err
		}
		if err := tx.Stats.RecordEvent(ctx, event); err != nil {
			return fmt.Errorf("record event: %w", err)
		}

		if word != nil {
			outcome, err := r.scheduler.Evaluate(word, a.Correct, today)
			switch {
			case errors.Is(err, domain.ErrInvariantViolation):
				log.Error("skipping scheduling for word with invalid mastery fields",
					slog.Int64("word_id", word.ID),
					slog.Int64("user_id", word.UserID),
					slog.Int("level", word.Level),
					slog.Int("streak", word.CorrectStreak),
					slog.String("error", err.Error()))
			case err != nil:
				return err
			default:
				if _, err := tx.Words.ApplyReviewOutcome(ctx, word.ID, outcome); err != nil {
					return fmt.Errorf("apply review outcome: %w", err)
				}
				rec.Outcome = &outcome
			}
		}

		if err := tx.Stats.RecordAnswer(ctx, a.UserID, a.Prompt, string(a.Kind), a.Correct); err != nil {
			return fmt.Errorf("record answer aggregate: %w", err)
		}

		if err := tx.Users.Ensure(ctx, a.UserID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		points, err := tx.Users.AdjustPoints(ctx, a.UserID, rec.PointsDelta)
		if err != nil {
			return fmt.Errorf("adjust points: %w", err)
		}
		rec.Points = points
		return nil
	})
	if err != nil {
		log.Error("failed to record answer",
			slog.Int64("word_id", a.WordID),
			slog.Int64("user_id", a.UserID),
			slog.String("error", err.Error()))
		return nil, storeUnavailable("record answer", err)
	}

	if word != nil && rec.Outcome != nil && rec.Outcome.ChangesMastery() {
		r.cache.InvalidateWord(word)
	}

	log.Debug("recorded answer",
		slog.Int64("word_id", a.WordID),
		slog.Int64("user_id", a.UserID),
		slog.Bool("correct", a.Correct),
		slog.Int("points_delta", rec.PointsDelta))
	return rec, nil
}

// RecordAdd appends the "added" event for w and awards the add points. It runs
// inside the caller's transaction so the event commits with the word itself.
func (r *Recorder) RecordAdd(ctx context.Context, tx store.Stores, w *domain.Word) error {
	event, err := domain.NewStatsEvent(w.UserID, w.ID, domain.ActionAdded, r.clock)
	if err != nil {
		return err
	}
	if err := tx.Stats.RecordEvent(ctx, event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if r.points.Added != 0 {
		if _, err := tx.Users.AdjustPoints(ctx, w.UserID, r.points.Added); err != nil {
			return fmt.Errorf("adjust points: %w", err)
		}
	}
	return nil
}

// PersistSessionSummary stores a finished session and folds it into the
// user's aggregates. A session with no answered question is not stored, so it
// cannot dilute the rolling average; its summary still carries the current
// aggregates.
func (r *Recorder) PersistSessionSummary(
	ctx context.Context,
	rec *domain.SessionRecord,
	unanswered int,
) (*domain.SessionSummary, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)
	rec.Percentage = domain.Percentage(rec.Correct, rec.Wrong)

	if rec.Answered() == 0 {
		agg, err := r.stores.Sessions.LoadUserAggregates(ctx, rec.UserID)
		if err != nil {
			return nil, storeUnavailable("load aggregates", err)
		}
		return domain.NewSessionSummary(rec, unanswered, agg), nil
	}

	var folded domain.UserAggregates
	err := r.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		if _, err := tx.Sessions.PersistSessionSummary(ctx, rec); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
		agg, err := tx.Sessions.LoadUserAggregates(ctx, rec.UserID)
		if err != nil {
			return fmt.Errorf("load aggregates: %w", err)
		}
		folded = agg.Fold(rec)
		return tx.Sessions.SaveUserAggregates(ctx, &folded)
	})
	if err != nil {
		rec.ID = 0
		log.Error("failed to persist session summary",
			slog.Int64("user_id", rec.UserID),
			slog.String("error", err.Error()))
		return nil, storeUnavailable("persist session summary", err)
	}

	log.Info("session persisted",
		slog.Int64("user_id", rec.UserID),
		slog.Int64("session_record_id", rec.ID),
		slog.String("kind", string(rec.Kind)),
		slog.Float64("percentage", rec.Percentage))
	return domain.NewSessionSummary(rec, unanswered, &folded), nil
}

// LoadAggregates returns the user's aggregates.
func (r *Recorder) LoadAggregates(ctx context.Context, userID int64) (*domain.UserAggregates, error) {
	agg, err := r.stores.Sessions.LoadUserAggregates(ctx, userID)
	if err != nil {
		return nil, storeUnavailable("load aggregates", err)
	}
	return agg, nil
}

// Hardest returns the user's answer aggregates, least accurate first.
func (r *Recorder) Hardest(ctx context.Context, userID int64, limit int) ([]domain.AnswerAggregate, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.stores.Stats.LoadHardest(ctx, userID, limit)
	if err != nil {
		return nil, storeUnavailable("load hardest", err)
	}
	return rows, nil
}

// UserPoints returns the user's current points; unknown users have none.
func (r *Recorder) UserPoints(ctx context.Context, userID int64) (int, error) {
	points, err := r.stores.Users.GetPoints(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storeUnavailable("get points", err)
	}
	return points, nil
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
