package store

import (
	"context"
	"database/sql"

	"github.com/wordl-bot/wordl/internal/domain"
)

// GroupStore defines the interface for word groups and their membership.
type GroupStore interface {
	// Create inserts a validated group and sets its ID.
	Create(ctx context.Context, group *domain.Group) error

	// IsOwner reports whether userID owns the group. A missing group yields false.
	IsOwner(ctx context.Context, groupID, userID int64) (bool, error)

	// Delete removes the group; its words and memberships cascade.
	// Returns ErrGroupNotFound if the group does not exist.
	Delete(ctx context.Context, groupID int64) error

	// AddMember adds userID to the group. Adding an existing member is a no-op.
	AddMember(ctx context.Context, groupID, userID int64) error

	// WithTx returns a GroupStore bound to the given transaction.
	WithTx(tx *sql.Tx) GroupStore
}
