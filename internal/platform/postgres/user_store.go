package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUserStore creates a new PostgreSQL implementation of the UserStore interface.
func NewUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresUserStore{
		db:     db,
		logger: componentLogger(logger, "user_store"),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

// Ensure implements store.UserStore.Ensure
func (s *PostgresUserStore) Ensure(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	return mapStoreError(err, "user", "ensure")
}

// AdjustPoints implements store.UserStore.AdjustPoints
func (s *PostgresUserStore) AdjustPoints(ctx context.Context, userID int64, delta int) (int, error) {
	var points int
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET points = GREATEST(points + $1, 0) WHERE id = $2 RETURNING points`,
		delta, userID,
	).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrUserNotFound
	}
	if err != nil {
		return 0, mapStoreError(err, "user", "adjust_points")
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("points adjusted",
		slog.Int64("user_id", userID),
		slog.Int("delta", delta),
		slog.Int("points", points))
	return points, nil
}

// GetPoints implements store.UserStore.GetPoints
func (s *PostgresUserStore) GetPoints(ctx context.Context, userID int64) (int, error) {
	var points int
	err := s.db.QueryRowContext(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrUserNotFound
	}
	if err != nil {
		return 0, mapStoreError(err, "user", "get_points")
	}
	return points, nil
}
