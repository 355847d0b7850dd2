package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wordl-bot/wordl/internal/store"
)

// UserStore implements store.UserStore on SQLite.
type UserStore struct {
	db *sqlx.DB
	q  conn
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates a UserStore on db.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db, q: db}
}

// WithTx implements store.UserStore.WithTx.
func (s *UserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &UserStore{db: s.db, q: bindTx(s.db, tx)}
}

// Ensure implements store.UserStore.Ensure.
func (s *UserStore) Ensure(ctx context.Context, userID int64) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (id, points, created_at) VALUES (?, 0, ?) ON CONFLICT (id) DO NOTHING`,
		userID, formatInstant(time.Now()),
	)
	return mapError(err, "user", "ensure")
}

// AdjustPoints implements store.UserStore.AdjustPoints.
func (s *UserStore) AdjustPoints(ctx context.Context, userID int64, delta int) (int, error) {
	var points int
	err := sqlx.GetContext(ctx, s.q, &points,
		`UPDATE users SET points = MAX(points + ?, 0) WHERE id = ? RETURNING points`,
		delta, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrUserNotFound
	}
	if err != nil {
		return 0, mapError(err, "user", "adjust_points")
	}
	return points, nil
}

// GetPoints implements store.UserStore.GetPoints.
func (s *UserStore) GetPoints(ctx context.Context, userID int64) (int, error) {
	var points int
	err := sqlx.GetContext(ctx, s.q, &points, `SELECT points FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrUserNotFound
	}
	if err != nil {
		return 0, mapError(err, "user", "get_points")
	}
	return points, nil
}
