package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

// PostgresStatsStore implements the store.StatsStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewStatsStore creates a new PostgreSQL implementation of the StatsStore interface.
func NewStatsStore(db store.DBTX, logger *slog.Logger) *PostgresStatsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresStatsStore{
		db:     db,
		logger: componentLogger(logger, "stats_store"),
	}
}

// Ensure PostgresStatsStore implements store.StatsStore interface
var _ store.StatsStore = (*PostgresStatsStore)(nil)

// WithTx implements store.StatsStore.WithTx
func (s *PostgresStatsStore) WithTx(tx *sql.Tx) store.StatsStore {
	return &PostgresStatsStore{db: tx, logger: s.logger}
}

// RecordEvent implements store.StatsStore.RecordEvent
// The word reference is resolved inside the insert, so an event for a word
// deleted in the meantime is stored with a NULL word_id instead of failing.
func (s *PostgresStatsStore) RecordEvent(ctx context.Context, event *domain.StatsEvent) error {
	query := `
		INSERT INTO stats_events (user_id, word_id, action, created_at, local_date)
		VALUES ($1, (SELECT id FROM words WHERE id = $2), $3, $4, $5)
		RETURNING id, word_id
	`
	var wordID sql.NullInt64
	err := s.db.QueryRowContext(
		ctx,
		query,
		event.UserID,
		event.WordID,
		string(event.Action),
		event.CreatedAt,
		domain.FormatDate(event.LocalDate),
	).Scan(&event.ID, &wordID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record stats event",
			slog.String("error", err.Error()),
			slog.Int64("user_id", event.UserID),
			slog.String("action", string(event.Action)))
		return mapStoreError(err, "stats_event", "record")
	}
	event.WordID = wordID.Int64
	return nil
}

// RecordAnswer implements store.StatsStore.RecordAnswer
func (s *PostgresStatsStore) RecordAnswer(ctx context.Context, userID int64, value, category string, correct bool) error {
	hit := 0
	if correct {
		hit = 1
	}
	query := `
		INSERT INTO answer_stats (user_id, value, category, attempts, correct)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_id, value, category) DO UPDATE
		SET attempts = answer_stats.attempts + 1,
		    correct = answer_stats.correct + EXCLUDED.correct
	`
	_, err := s.db.ExecContext(ctx, query, userID, value, category, hit)
	return mapStoreError(err, "answer", "record")
}

// LoadHardest implements store.StatsStore.LoadHardest
func (s *PostgresStatsStore) LoadHardest(ctx context.Context, userID int64, limit int) ([]domain.AnswerAggregate, error) {
	query := `
		SELECT user_id, value, category, attempts, correct
		FROM answer_stats
		WHERE user_id = $1 AND attempts > 0
		ORDER BY correct::float8 / attempts ASC, attempts DESC, value ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, mapStoreError(err, "answer", "load_hardest")
	}
	defer func() { _ = rows.Close() }()

	var out []domain.AnswerAggregate
	for rows.Next() {
		var a domain.AnswerAggregate
		if err := rows.Scan(&a.UserID, &a.Value, &a.Category, &a.Attempts, &a.Correct); err != nil {
			return nil, mapStoreError(err, "answer", "load_hardest")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err, "answer", "load_hardest")
	}
	return out, nil
}
