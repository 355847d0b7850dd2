package store

import (
	"context"
	"database/sql"

	"github.com/wordl-bot/wordl/internal/domain"
)

// StatsStore defines the interface for the append-only event log and the
// per-(user, value, category) answer aggregates.
type StatsStore interface {
	// RecordEvent appends an immutable event and sets its ID.
	// An event whose word has already been deleted is stored with no word reference.
	RecordEvent(ctx context.Context, event *domain.StatsEvent) error

	// RecordAnswer folds one answer into the aggregate row for (user, value, category),
	// creating the row on first use.
	RecordAnswer(ctx context.Context, userID int64, value, category string, correct bool) error

	// LoadHardest returns the user's aggregates ordered by accuracy ascending,
	// then attempts descending.
	LoadHardest(ctx context.Context, userID int64, limit int) ([]domain.AnswerAggregate, error)

	// WithTx returns a StatsStore bound to the given transaction.
	WithTx(tx *sql.Tx) StatsStore
}
