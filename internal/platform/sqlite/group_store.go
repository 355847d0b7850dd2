package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/store"
)

// GroupStore implements store.GroupStore on SQLite.
type GroupStore struct {
	db *sqlx.DB
	q  conn
}

var _ store.GroupStore = (*GroupStore)(nil)

// NewGroupStore creates a GroupStore on db.
func NewGroupStore(db *sqlx.DB) *GroupStore {
	return &GroupStore{db: db, q: db}
}

// WithTx implements store.GroupStore.WithTx.
func (s *GroupStore) WithTx(tx *sql.Tx) store.GroupStore {
	return &GroupStore{db: s.db, q: bindTx(s.db, tx)}
}

// Create implements store.GroupStore.Create.
func (s *GroupStore) Create(ctx context.Context, group *domain.Group) error {
	if err := group.Validate(); err != nil {
		return errors.Wrap(store.ErrInvalidEntity, err.Error())
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	err := sqlx.GetContext(ctx, s.q, &group.ID,
		`INSERT INTO word_groups (owner_id, name, created_at) VALUES (?, ?, ?) RETURNING id`,
		group.OwnerID, group.Name, formatInstant(group.CreatedAt),
	)
	if isForeignKeyViolation(err) {
		return store.ErrUserNotFound
	}
	return mapError(err, "group", "create")
}

// IsOwner implements store.GroupStore.IsOwner.
func (s *GroupStore) IsOwner(ctx context.Context, groupID, userID int64) (bool, error) {
	var owner bool
	err := sqlx.GetContext(ctx, s.q, &owner,
		`SELECT EXISTS (SELECT 1 FROM word_groups WHERE id = ? AND owner_id = ?)`,
		groupID, userID,
	)
	if err != nil {
		return false, mapError(err, "group", "check_owner")
	}
	return owner, nil
}

// Delete implements store.GroupStore.Delete.
func (s *GroupStore) Delete(ctx context.Context, groupID int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM word_groups WHERE id = ?`, groupID)
	if err != nil {
		return mapError(err, "group", "delete")
	}
	return checkRowsAffected(result, store.ErrGroupNotFound)
}

// AddMember implements store.GroupStore.AddMember.
func (s *GroupStore) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		groupID, userID,
	)
	if isForeignKeyViolation(err) {
		return store.ErrGroupNotFound
	}
	return mapError(err, "group_member", "add")
}
