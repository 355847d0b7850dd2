package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/store"
)

// StatsStore implements store.StatsStore on SQLite.
type StatsStore struct {
	db *sqlx.DB
	q  conn
}

var _ store.StatsStore = (*StatsStore)(nil)

// NewStatsStore creates a StatsStore on db.
func NewStatsStore(db *sqlx.DB) *StatsStore {
	return &StatsStore{db: db, q: db}
}

// WithTx implements store.StatsStore.WithTx.
func (s *StatsStore) WithTx(tx *sql.Tx) store.StatsStore {
	return &StatsStore{db: s.db, q: bindTx(s.db, tx)}
}

// RecordEvent implements store.StatsStore.RecordEvent.
// The word reference is resolved inside the insert, so an event for a word
// deleted in the meantime is stored with a NULL word_id instead of failing.
func (s *StatsStore) RecordEvent(ctx context.Context, event *domain.StatsEvent) error {
	var inserted struct {
		ID     int64         `db:"id"`
		WordID sql.NullInt64 `db:"word_id"`
	}
	err := sqlx.GetContext(ctx, s.q, &inserted, `
		INSERT INTO stats_events (user_id, word_id, action, created_at, local_date)
		VALUES (?, (SELECT id FROM words WHERE id = ?), ?, ?, ?)
		RETURNING id, word_id`,
		event.UserID, event.WordID, string(event.Action),
		formatInstant(event.CreatedAt), domain.FormatDate(event.LocalDate),
	)
	if err != nil {
		return mapError(err, "stats_event", "record")
	}
	event.ID = inserted.ID
	event.WordID = inserted.WordID.Int64
	return nil
}

// RecordAnswer implements store.StatsStore.RecordAnswer.
func (s *StatsStore) RecordAnswer(ctx context.Context, userID int64, value, category string, correct bool) error {
	hit := 0
	if correct {
		hit = 1
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO answer_stats (user_id, value, category, attempts, correct)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (user_id, value, category) DO UPDATE
		SET attempts = answer_stats.attempts + 1,
		    correct = answer_stats.correct + excluded.correct`,
		userID, value, category, hit,
	)
	return mapError(err, "answer", "record")
}

// LoadHardest implements store.StatsStore.LoadHardest.
func (s *StatsStore) LoadHardest(ctx context.Context, userID int64, limit int) ([]domain.AnswerAggregate, error) {
	var rows []struct {
		UserID   int64  `db:"user_id"`
		Value    string `db:"value"`
		Category string `db:"category"`
		Attempts int    `db:"attempts"`
		Correct  int    `db:"correct"`
	}
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT user_id, value, category, attempts, correct
		FROM answer_stats
		WHERE user_id = ? AND attempts > 0
		ORDER BY CAST(correct AS REAL) / attempts ASC, attempts DESC, value ASC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, mapError(err, "answer", "load_hardest")
	}

	out := make([]domain.AnswerAggregate, len(rows))
	for i, r := range rows {
		out[i] = domain.AnswerAggregate{
			UserID:   r.UserID,
			Value:    r.Value,
			Category: r.Category,
			Attempts: r.Attempts,
			Correct:  r.Correct,
		}
	}
	return out, nil
}
