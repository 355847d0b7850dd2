package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/store"
)

// SessionStore implements store.SessionStore on SQLite.
type SessionStore struct {
	db *sqlx.DB
	q  conn
}

var _ store.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore on db.
func NewSessionStore(db *sqlx.DB) *SessionStore {
	return &SessionStore{db: db, q: db}
}

// WithTx implements store.SessionStore.WithTx.
func (s *SessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &SessionStore{db: s.db, q: bindTx(s.db, tx)}
}

// PersistSessionSummary implements store.SessionStore.PersistSessionSummary.
func (s *SessionStore) PersistSessionSummary(ctx context.Context, rec *domain.SessionRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, errors.Wrap(store.ErrInvalidEntity, err.Error())
	}

	var id int64
	err := sqlx.GetContext(ctx, s.q, &id, `
		INSERT INTO quiz_sessions (user_id, group_id, kind, correct, wrong, percentage, score, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		rec.UserID, nullGroup(rec.GroupID), string(rec.Kind), rec.Correct, rec.Wrong,
		rec.Percentage, rec.Score, formatInstant(rec.StartedAt), formatInstant(rec.FinishedAt),
	)
	if err != nil {
		return 0, mapError(err, "session", "persist")
	}
	rec.ID = id
	return id, nil
}

type aggregatesRow struct {
	UserID            int64          `db:"user_id"`
	TotalSessions     int            `db:"total_sessions"`
	TotalQuestions    int            `db:"total_questions"`
	TotalCorrect      int            `db:"total_correct"`
	TotalWrong        int            `db:"total_wrong"`
	AveragePercentage float64        `db:"average_percentage"`
	BestPercentage    float64        `db:"best_percentage"`
	BestSessionID     sql.NullInt64  `db:"best_session_id"`
	LastSessionAt     sql.NullString `db:"last_session_at"`
}

// LoadUserAggregates implements store.SessionStore.LoadUserAggregates.
func (s *SessionStore) LoadUserAggregates(ctx context.Context, userID int64) (*domain.UserAggregates, error) {
	var row aggregatesRow
	err := sqlx.GetContext(ctx, s.q, &row, `
		SELECT user_id, total_sessions, total_questions, total_correct, total_wrong,
			average_percentage, best_percentage, best_session_id, last_session_at
		FROM user_session_stats WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.UserAggregates{UserID: userID}, nil
	}
	if err != nil {
		return nil, mapError(err, "aggregates", "load")
	}

	agg := &domain.UserAggregates{
		UserID:            row.UserID,
		TotalSessions:     row.TotalSessions,
		TotalQuestions:    row.TotalQuestions,
		TotalCorrect:      row.TotalCorrect,
		TotalWrong:        row.TotalWrong,
		AveragePercentage: row.AveragePercentage,
		BestPercentage:    row.BestPercentage,
		BestSessionID:     row.BestSessionID.Int64,
	}
	if row.LastSessionAt.Valid {
		t, err := parseInstant(row.LastSessionAt.String)
		if err != nil {
			return nil, err
		}
		agg.LastSessionAt = &t
	}
	return agg, nil
}

// SaveUserAggregates implements store.SessionStore.SaveUserAggregates.
func (s *SessionStore) SaveUserAggregates(ctx context.Context, agg *domain.UserAggregates) error {
	var last sql.NullString
	if agg.LastSessionAt != nil {
		last = sql.NullString{String: formatInstant(*agg.LastSessionAt), Valid: true}
	}
	best := sql.NullInt64{Int64: agg.BestSessionID, Valid: agg.BestSessionID != 0}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO user_session_stats (user_id, total_sessions, total_questions, total_correct,
			total_wrong, average_percentage, best_percentage, best_session_id, last_session_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			total_sessions = excluded.total_sessions,
			total_questions = excluded.total_questions,
			total_correct = excluded.total_correct,
			total_wrong = excluded.total_wrong,
			average_percentage = excluded.average_percentage,
			best_percentage = excluded.best_percentage,
			best_session_id = excluded.best_session_id,
			last_session_at = excluded.last_session_at`,
		agg.UserID, agg.TotalSessions, agg.TotalQuestions, agg.TotalCorrect, agg.TotalWrong,
		agg.AveragePercentage, agg.BestPercentage, best, last,
	)
	return mapError(err, "aggregates", "save")
}
