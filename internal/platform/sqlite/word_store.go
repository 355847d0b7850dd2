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

const wordColumns = `id, user_id, group_id, source, target, created_at,
	mastery_level, next_eligible, correct_streak, wrong_count`

type wordRow struct {
	ID            int64          `db:"id"`
	UserID        int64          `db:"user_id"`
	GroupID       sql.NullInt64  `db:"group_id"`
	Source        string         `db:"source"`
	Target        string         `db:"target"`
	CreatedAt     string         `db:"created_at"`
	Level         int            `db:"mastery_level"`
	NextEligible  sql.NullString `db:"next_eligible"`
	CorrectStreak int            `db:"correct_streak"`
	WrongCount    int            `db:"wrong_count"`
}

func (r wordRow) toDomain() (*domain.Word, error) {
	created, err := parseInstant(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	w := &domain.Word{
		ID:            r.ID,
		UserID:        r.UserID,
		GroupID:       r.GroupID.Int64,
		Source:        r.Source,
		Target:        r.Target,
		CreatedAt:     created,
		Level:         r.Level,
		CorrectStreak: r.CorrectStreak,
		WrongCount:    r.WrongCount,
	}
	if r.NextEligible.Valid {
		d, err := domain.ParseDate(r.NextEligible.String)
		if err != nil {
			return nil, errors.Wrapf(err, "word %d has invalid next_eligible", r.ID)
		}
		w.NextEligible = &d
	}
	return w, nil
}

func nullGroup(groupID int64) sql.NullInt64 {
	return sql.NullInt64{Int64: groupID, Valid: groupID != 0}
}

func nullDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.FormatDate(*d), Valid: true}
}

// scopeFilter returns the WHERE fragment selecting the words of scope.
func scopeFilter(scope domain.Scope) (string, int64) {
	if scope.HasGroup() {
		return "group_id = ?", scope.GroupID
	}
	return "user_id = ?", scope.UserID
}

// WordStore implements store.WordStore on SQLite.
type WordStore struct {
	db *sqlx.DB
	q  conn
}

var _ store.WordStore = (*WordStore)(nil)

// NewWordStore creates a WordStore on db.
func NewWordStore(db *sqlx.DB) *WordStore {
	return &WordStore{db: db, q: db}
}

// WithTx implements store.WordStore.WithTx.
func (s *WordStore) WithTx(tx *sql.Tx) store.WordStore {
	return &WordStore{db: s.db, q: bindTx(s.db, tx)}
}

// Create implements store.WordStore.Create.
func (s *WordStore) Create(ctx context.Context, word *domain.Word) error {
	if err := word.Validate(); err != nil {
		return errors.Wrap(store.ErrInvalidEntity, err.Error())
	}
	if word.CreatedAt.IsZero() {
		word.CreatedAt = time.Now().UTC()
	}

	err := sqlx.GetContext(ctx, s.q, &word.ID, `
		INSERT INTO words (user_id, group_id, source, target, created_at,
			mastery_level, next_eligible, correct_streak, wrong_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		word.UserID, nullGroup(word.GroupID), word.Source, word.Target, formatInstant(word.CreatedAt),
		word.Level, nullDate(word.NextEligible), word.CorrectStreak, word.WrongCount,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			if word.GroupID != 0 {
				if ok, _ := s.exists(ctx, "word_groups", word.GroupID); !ok {
					return store.ErrGroupNotFound
				}
			}
			return store.ErrUserNotFound
		}
		return mapError(err, "word", "create")
	}
	return nil
}

func (s *WordStore) exists(ctx context.Context, table string, id int64) (bool, error) {
	var ok bool
	err := sqlx.GetContext(ctx, s.q, &ok, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = ?)`, id)
	return ok, err
}

// GetByID implements store.WordStore.GetByID.
func (s *WordStore) GetByID(ctx context.Context, id int64) (*domain.Word, error) {
	var row wordRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+wordColumns+` FROM words WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrWordNotFound
	}
	if err != nil {
		return nil, mapError(err, "word", "get")
	}
	return row.toDomain()
}

// LoadEligible implements store.WordStore.LoadEligible.
func (s *WordStore) LoadEligible(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error) {
	filter, arg := scopeFilter(scope)

	var rows []wordRow
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT `+wordColumns+` FROM words
		WHERE `+filter+` AND (next_eligible IS NULL OR next_eligible <= ?)
		ORDER BY id`,
		arg, domain.FormatDate(domain.DateOf(asOf)),
	)
	if err != nil {
		return nil, mapError(err, "word", "load_eligible")
	}

	words := make([]*domain.Word, 0, len(rows))
	for _, r := range rows {
		w, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}

// LoadDistractorCandidates implements store.WordStore.LoadDistractorCandidates.
func (s *WordStore) LoadDistractorCandidates(
	ctx context.Context,
	scope domain.Scope,
	excludeWordID int64,
	limit int,
) ([]string, error) {
	filter, arg := scopeFilter(scope)

	var targets []string
	err := sqlx.SelectContext(ctx, s.q, &targets, `
		SELECT MIN(target) FROM words
		WHERE `+filter+` AND id <> ?
		GROUP BY lower(target)
		ORDER BY random()
		LIMIT ?`,
		arg, excludeWordID, limit,
	)
	if err != nil {
		return nil, mapError(err, "word", "load_distractors")
	}
	return targets, nil
}

// ApplyReviewOutcome implements store.WordStore.ApplyReviewOutcome.
func (s *WordStore) ApplyReviewOutcome(ctx context.Context, wordID int64, outcome domain.ReviewOutcome) (bool, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE words
		SET mastery_level = ?, next_eligible = ?, correct_streak = ?, wrong_count = ?
		WHERE id = ?`,
		outcome.NewLevel, nullDate(outcome.NextEligible), outcome.NewStreak, outcome.NewWrongCount, wordID,
	)
	if err != nil {
		return false, mapError(err, "word", "apply_outcome")
	}
	if err := checkRowsAffected(result, store.ErrWordNotFound); err != nil {
		if errors.Is(err, store.ErrWordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete implements store.WordStore.Delete.
func (s *WordStore) Delete(ctx context.Context, wordID, ownerID int64) (bool, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM words WHERE id = ? AND user_id = ?`, wordID, ownerID)
	if err != nil {
		return false, mapError(err, "word", "delete")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return n > 0, nil
}

// DeleteByScope implements store.WordStore.DeleteByScope.
func (s *WordStore) DeleteByScope(ctx context.Context, scope domain.Scope) (int64, error) {
	filter, arg := scopeFilter(scope)
	result, err := s.q.ExecContext(ctx, `DELETE FROM words WHERE `+filter, arg)
	if err != nil {
		return 0, mapError(err, "word", "delete_scope")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return n, nil
}
