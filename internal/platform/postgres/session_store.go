package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
func NewSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresSessionStore{
		db:     db,
		logger: componentLogger(logger, "session_store"),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// PersistSessionSummary implements store.SessionStore.PersistSessionSummary
func (s *PostgresSessionStore) PersistSessionSummary(ctx context.Context, rec *domain.SessionRecord) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("session record validation failed", slog.String("error", err.Error()))
		return 0, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO quiz_sessions (user_id, group_id, kind, correct, wrong, percentage, score, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		rec.UserID,
		nullGroup(rec.GroupID),
		string(rec.Kind),
		rec.Correct,
		rec.Wrong,
		rec.Percentage,
		rec.Score,
		rec.StartedAt,
		rec.FinishedAt,
	).Scan(&rec.ID)
	if err != nil {
		log.Error("failed to persist session",
			slog.String("error", err.Error()),
			slog.Int64("user_id", rec.UserID))
		return 0, mapStoreError(err, "session", "persist")
	}
	return rec.ID, nil
}

// LoadUserAggregates implements store.SessionStore.LoadUserAggregates
func (s *PostgresSessionStore) LoadUserAggregates(ctx context.Context, userID int64) (*domain.UserAggregates, error) {
	query := `
		SELECT user_id, total_sessions, total_questions, total_correct, total_wrong,
			average_percentage, best_percentage, best_session_id, last_session_at
		FROM user_session_stats
		WHERE user_id = $1
	`
	var (
		agg    domain.UserAggregates
		bestID sql.NullInt64
		lastAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&agg.UserID,
		&agg.TotalSessions,
		&agg.TotalQuestions,
		&agg.TotalCorrect,
		&agg.TotalWrong,
		&agg.AveragePercentage,
		&agg.BestPercentage,
		&bestID,
		&lastAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.UserAggregates{UserID: userID}, nil
	}
	if err != nil {
		return nil, mapStoreError(err, "aggregates", "load")
	}

	agg.BestSessionID = bestID.Int64
	if lastAt.Valid {
		t := lastAt.Time.UTC()
		agg.LastSessionAt = &t
	}
	return &agg, nil
}

// SaveUserAggregates implements store.SessionStore.SaveUserAggregates
func (s *PostgresSessionStore) SaveUserAggregates(ctx context.Context, agg *domain.UserAggregates) error {
	var last sql.NullTime
	if agg.LastSessionAt != nil {
		last = sql.NullTime{Time: *agg.LastSessionAt, Valid: true}
	}
	best := sql.NullInt64{Int64: agg.BestSessionID, Valid: agg.BestSessionID != 0}

	query := `
		INSERT INTO user_session_stats (user_id, total_sessions, total_questions, total_correct,
			total_wrong, average_percentage, best_percentage, best_session_id, last_session_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			total_sessions = EXCLUDED.total_sessions,
			total_questions = EXCLUDED.total_questions,
			total_correct = EXCLUDED.total_correct,
			total_wrong = EXCLUDED.total_wrong,
			average_percentage = EXCLUDED.average_percentage,
			best_percentage = EXCLUDED.best_percentage,
			best_session_id = EXCLUDED.best_session_id,
			last_session_at = EXCLUDED.last_session_at
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		agg.UserID,
		agg.TotalSessions,
		agg.TotalQuestions,
		agg.TotalCorrect,
		agg.TotalWrong,
		agg.AveragePercentage,
		agg.BestPercentage,
		best,
		last,
	)
	return mapStoreError(err, "aggregates", "save")
}
