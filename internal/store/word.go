package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
)

// WordStore defines the interface for word persistence, including the
// per-word mastery fields written by the review scheduler.
type WordStore interface {
	// Create inserts a validated word and sets its ID.
	// Returns ErrUserNotFound or ErrGroupNotFound when a referenced row is missing.
	Create(ctx context.Context, word *domain.Word) error

	// GetByID retrieves a word by its ID.
	// Returns ErrWordNotFound if the word does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Word, error)

	// LoadEligible returns every word in scope whose next eligible date is unset
	// or not after asOf. A personal scope covers all words owned by the user,
	// a group scope all words in the group regardless of owner.
	// Words are returned in ID order.
	LoadEligible(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error)

	// LoadDistractorCandidates returns up to limit distinct target strings of
	// words in scope other than excludeWordID, in random order.
	LoadDistractorCandidates(
		ctx context.Context,
		scope domain.Scope,
		excludeWordID int64,
		limit int,
	) ([]string, error)

	// ApplyReviewOutcome writes the outcome's mastery fields to the word row.
	// It reports false, without error, when the word no longer exists.
	ApplyReviewOutcome(ctx context.Context, wordID int64, outcome domain.ReviewOutcome) (bool, error)

	// Delete removes the word if ownerID owns it. It reports false when the
	// word is missing or owned by someone else.
	Delete(ctx context.Context, wordID, ownerID int64) (bool, error)

	// DeleteByScope removes every word in scope and returns the number removed.
	// Group-scope deletion removes the group's words from all owners.
	DeleteByScope(ctx context.Context, scope domain.Scope) (int64, error)

	// WithTx returns a WordStore bound to the given transaction.
	WithTx(tx *sql.Tx) WordStore
}
