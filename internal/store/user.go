package store

import (
	"context"
	"database/sql"
)

// UserStore defines the interface for learner rows and their point totals.
// User IDs are assigned by the transport layer, not by the store.
type UserStore interface {
	// Ensure creates the user row if it does not exist yet.
	Ensure(ctx context.Context, userID int64) error

	// AdjustPoints adds delta to the user's points, flooring the result at zero,
	// and returns the new total.
	// Returns ErrUserNotFound if the user does not exist.
	AdjustPoints(ctx context.Context, userID int64, delta int) (int, error)

	// GetPoints returns the user's current points.
	// Returns ErrUserNotFound if the user does not exist.
	GetPoints(ctx context.Context, userID int64) (int, error)

	// WithTx returns a UserStore bound to the given transaction.
	WithTx(tx *sql.Tx) UserStore
}
