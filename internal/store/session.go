package store

import (
	"context"
	"database/sql"

	"github.com/wordl-bot/wordl/internal/domain"
)

// SessionStore persists finished session records and the per-user fold over them.
type SessionStore interface {
	// PersistSessionSummary inserts a finished session and returns its record ID.
	PersistSessionSummary(ctx context.Context, rec *domain.SessionRecord) (int64, error)

	// LoadUserAggregates returns the user's aggregates, or a zero value carrying
	// only the user ID when no session has been persisted yet.
	LoadUserAggregates(ctx context.Context, userID int64) (*domain.UserAggregates, error)

	// SaveUserAggregates upserts the user's aggregates.
	SaveUserAggregates(ctx context.Context, agg *domain.UserAggregates) error

	// WithTx returns a SessionStore bound to the given transaction.
	WithTx(tx *sql.Tx) SessionStore
}
