package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wordl-bot/wordl/internal/cache"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/store"
)

// AddRecorder appends the "added" event of a new word inside the caller's
// transaction. *stats.Recorder satisfies it.
type AddRecorder interface {
	RecordAdd(ctx context.Context, tx store.Stores, w *domain.Word) error
}

// ImportResult reports a bulk import.
type ImportResult struct {
	Added int
	// Errors holds one "Line N: reason" message per rejected line.
	Errors []string
}

// Service adds and removes words and groups.
type Service struct {
	stores      store.Stores
	recorder    AddRecorder
	invalidator cache.Invalidator
	clock       domain.Clock
	logger      *slog.Logger
}

// NewService creates a Service. It panics if recorder or invalidator is nil.
func NewService(
	stores store.Stores,
	recorder AddRecorder,
	invalidator cache.Invalidator,
	clock domain.Clock,
	log *slog.Logger,
) *Service {
	if recorder == nil {
		panic("recorder cannot be nil")
	}
	if invalidator == nil {
		panic("invalidator cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		stores:      stores,
		recorder:    recorder,
		invalidator: invalidator,
		clock:       clock,
		logger:      log.With(slog.String("component", "vocabulary_service")),
	}
}

// AddWord stores a word in the user's personal list (groupID 0) or in a group.
// The word is eligible today at mastery level 0.
//
// Returns:
//   - (*domain.Word, nil): The stored word with its ID set
//   - (nil, domain.ErrEmptyText or domain.ErrInvalidID): The input is invalid
//   - (nil, store.ErrGroupNotFound): The group does not exist
//   - (nil, error wrapping domain.ErrStoreUnavailable): A repository call failed
func (s *Service) AddWord(ctx context.Context, userID, groupID int64, source, target string) (*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	w, err := domain.NewWord(userID, groupID, source, target, s.clock.Today())
	if err != nil {
		return nil, err
	}

	err = s.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		if err := tx.Users.Ensure(ctx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if err := tx.Words.Create(ctx, w); err != nil {
			return fmt.Errorf("create word: %w", err)
		}
		return s.recorder.RecordAdd(ctx, tx, w)
	})
	if err != nil {
		log.Error("failed to add word",
			slog.Int64("user_id", userID),
			slog.Int64("group_id", groupID),
			slog.String("error", err.Error()))
		return nil, storeError("add word", err)
	}

	s.invalidator.InvalidateWord(w)
	log.Debug("word added",
		slog.Int64("word_id", w.ID),
		slog.Int64("user_id", userID),
		slog.Int64("group_id", groupID))
	return w, nil
}

// AddWordsFromLines parses and adds one word per line. Blank lines are
// skipped; every other failure is reported by line number and does not stop
// the import.
func (s *Service) AddWordsFromLines(ctx context.Context, userID, groupID int64, lines []string) ImportResult {
	var res ImportResult
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %v", i+1, err))
			break
		}
		source, target, err := ParseWordLine(line)
		if errors.Is(err, ErrEmptyLine) {
			continue
		}
		if err == nil {
			_, err = s.AddWord(ctx, userID, groupID, source, target)
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %v", i+1, err))
			continue
		}
		res.Added++
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("words imported",
		slog.Int64("user_id", userID),
		slog.Int64("group_id", groupID),
		slog.Int("added", res.Added),
		slog.Int("rejected", len(res.Errors)))
	return res
}

// DeleteWord removes a word the user owns. It reports false when the word is
// missing or owned by someone else.
func (s *Service) DeleteWord(ctx context.Context, userID, wordID int64) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	w, err := s.stores.Words.GetByID(ctx, wordID)
	if store.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, storeError("load word", err)
	}

	deleted, err := s.stores.Words.Delete(ctx, wordID, userID)
	if err != nil {
		log.Error("failed to delete word",
			slog.Int64("word_id", wordID),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
		return false, storeError("delete word", err)
	}
	if !deleted {
		log.Debug("word not deleted, not the owner",
			slog.Int64("word_id", wordID),
			slog.Int64("user_id", userID))
		return false, nil
	}

	s.invalidator.InvalidateWord(w)
	log.Info("word deleted", slog.Int64("word_id", wordID), slog.Int64("user_id", userID))
	return true, nil
}

// DeleteAllWords removes every word of the user's personal list (groupID 0)
// or of a group. Only the group owner may empty a group; anyone else gets
// false. It returns whether the deletion was allowed and how many words went.
func (s *Service) DeleteAllWords(ctx context.Context, userID, groupID int64) (bool, int64, error) {
	scope := domain.GroupScope(userID, groupID)
	if err := scope.Validate(); err != nil {
		return false, 0, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	var removed int64
	allowed := true
	err := s.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		if scope.HasGroup() {
			owner, err := tx.Groups.IsOwner(ctx, groupID, userID)
			if err != nil {
				return fmt.Errorf("check owner: %w", err)
			}
			if !owner {
				allowed = false
				return nil
			}
		}
		var err error
		removed, err = tx.Words.DeleteByScope(ctx, scope)
		return err
	})
	if err != nil {
		log.Error("failed to delete words",
			slog.String("scope", scope.String()),
			slog.String("error", err.Error()))
		return false, 0, storeError("delete words", err)
	}
	if !allowed {
		return false, 0, nil
	}

	// Deleted words leave personal and group entries of several users.
	s.invalidator.InvalidateAll()
	log.Info("words deleted", slog.String("scope", scope.String()), slog.Int64("removed", removed))
	return true, removed, nil
}

// CreateGroup creates a group and makes its owner a member.
func (s *Service) CreateGroup(ctx context.Context, ownerID int64, name string) (*domain.Group, error) {
	g, err := domain.NewGroup(ownerID, name)
	if err != nil {
		return nil, err
	}

	err = s.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		if err := tx.Users.Ensure(ctx, ownerID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if err := tx.Groups.Create(ctx, g); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		return tx.Groups.AddMember(ctx, g.ID, ownerID)
	})
	if err != nil {
		return nil, storeError("create group", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("group created",
		slog.Int64("group_id", g.ID),
		slog.Int64("owner_id", ownerID))
	return g, nil
}

// DeleteGroup removes a group with its words and memberships. Only the owner
// may delete it; anyone else, or a missing group, gets false.
func (s *Service) DeleteGroup(ctx context.Context, userID, groupID int64) (bool, error) {
	allowed := true
	err := s.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		owner, err := tx.Groups.IsOwner(ctx, groupID, userID)
		if err != nil {
			return fmt.Errorf("check owner: %w", err)
		}
		if !owner {
			allowed = false
			return nil
		}
		return tx.Groups.Delete(ctx, groupID)
	})
	if err != nil {
		return false, storeError("delete group", err)
	}
	if !allowed {
		return false, nil
	}

	s.invalidator.InvalidateAll()
	logger.FromContextOrDefault(ctx, s.logger).Info("group deleted",
		slog.Int64("group_id", groupID),
		slog.Int64("user_id", userID))
	return true, nil
}

// storeError keeps missing-reference errors visible to callers and reports
// everything else as the store being unavailable.
func storeError(op string, err error) error {
	if store.IsNotFoundError(err) || errors.Is(err, store.ErrInvalidEntity) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
