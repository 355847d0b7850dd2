package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/store"
)

// MockWordStore implements store.WordStore for testing.
// Without function overrides it behaves like an in-memory table.
type MockWordStore struct {
	// Function fields for customizable behavior
	CreateFn                   func(ctx context.Context, word *domain.Word) error
	GetByIDFn                  func(ctx context.Context, id int64) (*domain.Word, error)
	LoadEligibleFn             func(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error)
	LoadDistractorCandidatesFn func(ctx context.Context, scope domain.Scope, excludeWordID int64, limit int) ([]string, error)
	ApplyReviewOutcomeFn       func(ctx context.Context, wordID int64, outcome domain.ReviewOutcome) (bool, error)
	DeleteFn                   func(ctx context.Context, wordID, ownerID int64) (bool, error)
	DeleteByScopeFn            func(ctx context.Context, scope domain.Scope) (int64, error)

	mu     sync.Mutex
	Words  map[int64]*domain.Word
	nextID int64

	// Call counters
	LoadEligibleCalls int
	DistractorCalls   int
}

var _ store.WordStore = (*MockWordStore)(nil)

// NewMockWordStore creates a mock holding the given words.
// Words without an ID are assigned one.
func NewMockWordStore(words ...*domain.Word) *MockWordStore {
	m := &MockWordStore{Words: make(map[int64]*domain.Word)}
	for _, w := range words {
		m.put(w)
	}
	return m
}

func (m *MockWordStore) put(w *domain.Word) {
	if w.ID == 0 {
		m.nextID++
		w.ID = m.nextID
	} else if w.ID > m.nextID {
		m.nextID = w.ID
	}
	cp := *w
	m.Words[w.ID] = &cp
}

func inScope(w *domain.Word, scope domain.Scope) bool {
	if scope.HasGroup() {
		return w.GroupID == scope.GroupID
	}
	return w.UserID == scope.UserID
}

// sortedWords returns the table in ID order; callers hold m.mu.
func (m *MockWordStore) sortedWords() []*domain.Word {
	out := make([]*domain.Word, 0, len(m.Words))
	for _, w := range m.Words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create implements the WordStore interface
func (m *MockWordStore) Create(ctx context.Context, word *domain.Word) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, word)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(word)
	return nil
}

// GetByID implements the WordStore interface
func (m *MockWordStore) GetByID(ctx context.Context, id int64) (*domain.Word, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.Words[id]
	if !ok {
		return nil, store.ErrWordNotFound
	}
	cp := *w
	return &cp, nil
}

// LoadEligible implements the WordStore interface
func (m *MockWordStore) LoadEligible(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error) {
	m.mu.Lock()
	m.LoadEligibleCalls++
	m.mu.Unlock()
	if m.LoadEligibleFn != nil {
		return m.LoadEligibleFn(ctx, scope, asOf)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Word
	for _, w := range m.sortedWords() {
		if inScope(w, scope) && w.IsEligible(asOf) {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

// LoadDistractorCandidates implements the WordStore interface.
// The default returns distinct targets in ID order, which keeps tests deterministic.
func (m *MockWordStore) LoadDistractorCandidates(
	ctx context.Context,
	scope domain.Scope,
	excludeWordID int64,
	limit int,
) ([]string, error) {
	m.mu.Lock()
	m.DistractorCalls++
	m.mu.Unlock()
	if m.LoadDistractorCandidatesFn != nil {
		return m.LoadDistractorCandidatesFn(ctx, scope, excludeWordID, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, w := range m.sortedWords() {
		if len(out) >= limit {
			break
		}
		key := strings.ToLower(w.Target)
		if w.ID == excludeWordID || !inScope(w, scope) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w.Target)
	}
	return out, nil
}

// ApplyReviewOutcome implements the WordStore interface
func (m *MockWordStore) ApplyReviewOutcome(ctx context.Context, wordID int64, outcome domain.ReviewOutcome) (bool, error) {
	if m.ApplyReviewOutcomeFn != nil {
		return m.ApplyReviewOutcomeFn(ctx, wordID, outcome)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.Words[wordID]
	if !ok {
		return false, nil
	}
	updated := outcome.Apply(*w)
	m.Words[wordID] = &updated
	return true, nil
}

// Delete implements the WordStore interface
func (m *MockWordStore) Delete(ctx context.Context, wordID, ownerID int64) (bool, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, wordID, ownerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.Words[wordID]
	if !ok || w.UserID != ownerID {
		return false, nil
	}
	delete(m.Words, wordID)
	return true, nil
}

// DeleteByScope implements the WordStore interface
func (m *MockWordStore) DeleteByScope(ctx context.Context, scope domain.Scope) (int64, error) {
	if m.DeleteByScopeFn != nil {
		return m.DeleteByScopeFn(ctx, scope)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, w := range m.Words {
		if inScope(w, scope) {
			delete(m.Words, id)
			n++
		}
	}
	return n, nil
}

// WithTx returns the mock itself; it has no transactional behavior.
func (m *MockWordStore) WithTx(tx *sql.Tx) store.WordStore {
	return m
}
