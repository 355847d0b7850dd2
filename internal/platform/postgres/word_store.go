package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

const wordColumns = `id, user_id, group_id, source, target, created_at,
	mastery_level, next_eligible, correct_streak, wrong_count`

// PostgresWordStore implements the store.WordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresWordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewWordStore creates a new PostgreSQL implementation of the WordStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewWordStore(db store.DBTX, logger *slog.Logger) *PostgresWordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresWordStore{
		db:     db,
		logger: componentLogger(logger, "word_store"),
	}
}

// Ensure PostgresWordStore implements store.WordStore interface
var _ store.WordStore = (*PostgresWordStore)(nil)

// WithTx implements store.WordStore.WithTx
func (s *PostgresWordStore) WithTx(tx *sql.Tx) store.WordStore {
	return &PostgresWordStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWord(row rowScanner) (*domain.Word, error) {
	var (
		w            domain.Word
		groupID      sql.NullInt64
		nextEligible sql.NullTime
	)
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&groupID,
		&w.Source,
		&w.Target,
		&w.CreatedAt,
		&w.Level,
		&nextEligible,
		&w.CorrectStreak,
		&w.WrongCount,
	)
	if err != nil {
		return nil, err
	}
	w.GroupID = groupID.Int64
	if nextEligible.Valid {
		d := domain.DateOf(nextEligible.Time)
		w.NextEligible = &d
	}
	return &w, nil
}

func nullDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.FormatDate(*d), Valid: true}
}

// scopeFilter returns the WHERE fragment selecting the words of scope, bound to $1.
func scopeFilter(scope domain.Scope) (string, int64) {
	if scope.HasGroup() {
		return "group_id = $1", scope.GroupID
	}
	return "user_id = $1", scope.UserID
}

// Create implements store.WordStore.Create
func (s *PostgresWordStore) Create(ctx context.Context, word *domain.Word) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := word.Validate(); err != nil {
		log.Warn("word validation failed during create", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if word.CreatedAt.IsZero() {
		word.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO words (user_id, group_id, source, target, created_at,
			mastery_level, next_eligible, correct_streak, wrong_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		word.UserID,
		nullGroup(word.GroupID),
		word.Source,
		word.Target,
		word.CreatedAt,
		word.Level,
		nullDate(word.NextEligible),
		word.CorrectStreak,
		word.WrongCount,
	).Scan(&word.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during word creation",
				slog.String("constraint", ConstraintName(err)),
				slog.Int64("user_id", word.UserID),
				slog.Int64("group_id", word.GroupID))
			if ConstraintName(err) == "words_group_id_fkey" {
				return store.ErrGroupNotFound
			}
			return store.ErrUserNotFound
		}
		log.Error("failed to create word",
			slog.String("error", err.Error()),
			slog.Int64("user_id", word.UserID))
		return mapStoreError(err, "word", "create")
	}

	log.Debug("word created",
		slog.Int64("word_id", word.ID),
		slog.Int64("user_id", word.UserID))
	return nil
}

// GetByID implements store.WordStore.GetByID
func (s *PostgresWordStore) GetByID(ctx context.Context, id int64) (*domain.Word, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+wordColumns+` FROM words WHERE id = $1`, id)
	w, err := scanWord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrWordNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get word",
			slog.String("error", err.Error()),
			slog.Int64("word_id", id))
		return nil, mapStoreError(err, "word", "get")
	}
	return w, nil
}

// LoadEligible implements store.WordStore.LoadEligible
func (s *PostgresWordStore) LoadEligible(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error) {
	filter, arg := scopeFilter(scope)
	query := `
		SELECT ` + wordColumns + ` FROM words
		WHERE ` + filter + ` AND (next_eligible IS NULL OR next_eligible <= $2)
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, arg, domain.FormatDate(domain.DateOf(asOf)))
	if err != nil {
		return nil, mapStoreError(err, "word", "load_eligible")
	}
	defer func() { _ = rows.Close() }()

	var words []*domain.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, mapStoreError(err, "word", "load_eligible")
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err, "word", "load_eligible")
	}
	return words, nil
}

// LoadDistractorCandidates implements store.WordStore.LoadDistractorCandidates
func (s *PostgresWordStore) LoadDistractorCandidates(
	ctx context.Context,
	scope domain.Scope,
	excludeWordID int64,
	limit int,
) ([]string, error) {
	filter, arg := scopeFilter(scope)
	query := `
		SELECT MIN(target) FROM words
		WHERE ` + filter + ` AND id <> $2
		GROUP BY lower(target)
		ORDER BY random()
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, arg, excludeWordID, limit)
	if err != nil {
		return nil, mapStoreError(err, "word", "load_distractors")
	}
	defer func() { _ = rows.Close() }()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, mapStoreError(err, "word", "load_distractors")
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err, "word", "load_distractors")
	}
	return targets, nil
}

// ApplyReviewOutcome implements store.WordStore.ApplyReviewOutcome
func (s *PostgresWordStore) ApplyReviewOutcome(ctx context.Context, wordID int64, outcome domain.ReviewOutcome) (bool, error) {
	query := `
		UPDATE words
		SET mastery_level = $1, next_eligible = $2, correct_streak = $3, wrong_count = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		outcome.NewLevel,
		nullDate(outcome.NextEligible),
		outcome.NewStreak,
		outcome.NewWrongCount,
		wordID,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to apply review outcome",
			slog.String("error", err.Error()),
			slog.Int64("word_id", wordID))
		return false, mapStoreError(err, "word", "apply_outcome")
	}
	if err := CheckRowsAffected(result, store.ErrWordNotFound); err != nil {
		if errors.Is(err, store.ErrWordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete implements store.WordStore.Delete
func (s *PostgresWordStore) Delete(ctx context.Context, wordID, ownerID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM words WHERE id = $1 AND user_id = $2`, wordID, ownerID)
	if err != nil {
		return false, mapStoreError(err, "word", "delete")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByScope implements store.WordStore.DeleteByScope
func (s *PostgresWordStore) DeleteByScope(ctx context.Context, scope domain.Scope) (int64, error) {
	filter, arg := scopeFilter(scope)
	result, err := s.db.ExecContext(ctx, `DELETE FROM words WHERE `+filter, arg)
	if err != nil {
		return 0, mapStoreError(err, "word", "delete_scope")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
