package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

// PostgresGroupStore implements the store.GroupStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGroupStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewGroupStore creates a new PostgreSQL implementation of the GroupStore interface.
func NewGroupStore(db store.DBTX, logger *slog.Logger) *PostgresGroupStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresGroupStore{
		db:     db,
		logger: componentLogger(logger, "group_store"),
	}
}

// Ensure PostgresGroupStore implements store.GroupStore interface
var _ store.GroupStore = (*PostgresGroupStore)(nil)

// WithTx implements store.GroupStore.WithTx
func (s *PostgresGroupStore) WithTx(tx *sql.Tx) store.GroupStore {
	return &PostgresGroupStore{db: tx, logger: s.logger}
}

// Create implements store.GroupStore.Create
func (s *PostgresGroupStore) Create(ctx context.Context, group *domain.Group) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO word_groups (owner_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		group.OwnerID, group.Name, group.CreatedAt,
	).Scan(&group.ID)
	if IsForeignKeyViolation(err) {
		return store.ErrUserNotFound
	}
	return mapStoreError(err, "group", "create")
}

// IsOwner implements store.GroupStore.IsOwner
func (s *PostgresGroupStore) IsOwner(ctx context.Context, groupID, userID int64) (bool, error) {
	var owner bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM word_groups WHERE id = $1 AND owner_id = $2)`,
		groupID, userID,
	).Scan(&owner)
	if err != nil {
		return false, mapStoreError(err, "group", "check_owner")
	}
	return owner, nil
}

// Delete implements store.GroupStore.Delete
func (s *PostgresGroupStore) Delete(ctx context.Context, groupID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM word_groups WHERE id = $1`, groupID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete group",
			slog.String("error", err.Error()),
			slog.Int64("group_id", groupID))
		return mapStoreError(err, "group", "delete")
	}
	return CheckRowsAffected(result, store.ErrGroupNotFound)
}

// AddMember implements store.GroupStore.AddMember
func (s *PostgresGroupStore) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, userID,
	)
	if IsForeignKeyViolation(err) {
		if ConstraintName(err) == "group_members_user_id_fkey" {
			return store.ErrUserNotFound
		}
		return store.ErrGroupNotFound
	}
	return mapStoreError(err, "group_member", "add")
}
