package picker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/wordl-bot/wordl/internal/cache"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/platform/logger"
)

// Placeholders pad the distractor list when a scope has too few distinct alternatives.
var Placeholders = []string{"nomuvofiq", "aniq emas", "bog'liq emas", "bilinmaydi"}

// DefaultDistractorPool is how many candidate strings are read from the store per question.
const DefaultDistractorPool = 30

// Picker selects the next question for a scope.
type Picker interface {
	// PickQuestion chooses an eligible word in scope and builds a question with
	// exactly domain.DistractorCount distractors. The correct answer is reported
	// by value; Question.Index is left for the session to set.
	//
	// Returns:
	//   - (*domain.Question, nil): The question to ask
	//   - (nil, domain.ErrNoWordsAvailable): The scope has no eligible words
	//   - (nil, error wrapping domain.ErrStoreUnavailable): A repository call failed
	PickQuestion(ctx context.Context, scope domain.Scope) (*domain.Question, error)

	// Forget clears the last-asked marker of a scope.
	Forget(scope domain.Scope)
}

// EligibleSource provides the cached eligible set of a scope.
// *cache.WordCache satisfies it.
type EligibleSource interface {
	GetEligible(ctx context.Context, scope domain.Scope) ([]*domain.Word, error)
}

// DistractorSource provides wrong-answer candidates. store.WordStore satisfies it.
type DistractorSource interface {
	LoadDistractorCandidates(
		ctx context.Context,
		scope domain.Scope,
		excludeWordID int64,
		limit int,
	) ([]string, error)
}

// Option configures a picker.
type Option func(*picker)

// WithRandom replaces the random source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(p *picker) {
		p.intn = intn
	}
}

// WithDistractorPool sets how many candidates are read per question.
func WithDistractorPool(n int) Option {
	return func(p *picker) {
		if n >= domain.DistractorCount {
			p.poolLimit = n
		}
	}
}

var _ Picker = (*picker)(nil)

type picker struct {
	words       EligibleSource
	distractors DistractorSource
	intn        func(n int) int
	poolLimit   int
	logger      *slog.Logger

	locks *cache.KeyedMutex[domain.Scope]

	mu        sync.Mutex
	lastAsked map[domain.Scope]int64
}

// NewPicker creates a Picker. It panics if a source is nil.
func NewPicker(words EligibleSource, distractors DistractorSource, log *slog.Logger, opts ...Option) Picker {
	if words == nil {
		panic("words cannot be nil")
	}
	if distractors == nil {
		panic("distractors cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	p := &picker{
		words:       words,
		distractors: distractors,
		intn:        rand.IntN,
		poolLimit:   DefaultDistractorPool,
		logger:      log.With(slog.String("component", "picker")),
		locks:       cache.NewKeyedMutex[domain.Scope](),
		lastAsked:   make(map[domain.Scope]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PickQuestion implements Picker.PickQuestion.
func (p *picker) PickQuestion(ctx context.Context, scope domain.Scope) (*domain.Question, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, p.logger)

	unlock := p.locks.Lock(scope)
	defer unlock()

	words, err := p.words.GetEligible(ctx, scope)
	if err != nil {
		log.Error("failed to load eligible words",
			slog.String("scope", scope.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: load eligible words: %w", domain.ErrStoreUnavailable, err)
	}

	candidates := p.candidates(log, words, scope)
	if len(candidates) == 0 {
		log.Debug("no eligible words", slog.String("scope", scope.String()))
		return nil, domain.ErrNoWordsAvailable
	}

	chosen := candidates[p.intn(len(candidates))]

	pool, err := p.distractors.LoadDistractorCandidates(ctx, scope, chosen.ID, p.poolLimit)
	if err != nil {
		log.Error("failed to load distractor candidates",
			slog.String("scope", scope.String()),
			slog.Int64("word_id", chosen.ID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: load distractors: %w", domain.ErrStoreUnavailable, err)
	}

	q := &domain.Question{
		WordID:      chosen.ID,
		Prompt:      chosen.Source,
		Correct:     chosen.Target,
		Distractors: p.buildDistractors(chosen.Target, pool),
	}

	p.mu.Lock()
	p.lastAsked[scope] = chosen.ID
	p.mu.Unlock()

	log.Debug("picked question",
		slog.String("scope", scope.String()),
		slog.Int64("word_id", chosen.ID),
		slog.Int("candidates", len(candidates)))
	return q, nil
}

// Forget implements Picker.Forget.
func (p *picker) Forget(scope domain.Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.lastAsked, scope)
}

// candidates drops words with broken invariants and, when an alternative
// exists, the word asked last in this scope.
func (p *picker) candidates(log *slog.Logger, words []*domain.Word, scope domain.Scope) []*domain.Word {
	valid := words[:0:0]
	for _, w := range words {
		if err := w.CheckInvariants(); err != nil {
			log.Error("skipping word with invalid mastery fields",
				slog.Int64("word_id", w.ID),
				slog.Int64("user_id", w.UserID),
				slog.String("error", err.Error()))
			continue
		}
		valid = append(valid, w)
	}

	if len(valid) < 2 {
		return valid
	}

	p.mu.Lock()
	last, ok := p.lastAsked[scope]
	p.mu.Unlock()
	if !ok {
		return valid
	}

	filtered := make([]*domain.Word, 0, len(valid))
	for _, w := range valid {
		if w.ID != last {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 {
		return valid
	}
	return filtered
}

// buildDistractors samples DistractorCount distinct strings from pool without
// replacement and pads with placeholders. Comparison ignores case and
// surrounding whitespace.
func (p *picker) buildDistractors(correct string, pool []string) []string {
	seen := map[string]bool{normalize(correct): true}

	unique := make([]string, 0, len(pool))
	for _, s := range pool {
		s = strings.TrimSpace(s)
		key := normalize(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}

	out := make([]string, 0, domain.DistractorCount)
	for i := 0; i < len(unique) && len(out) < domain.DistractorCount; i++ {
		j := i + p.intn(len(unique)-i)
		unique[i], unique[j] = unique[j], unique[i]
		out = append(out, unique[i])
	}

	for _, ph := range Placeholders {
		if len(out) == domain.DistractorCount {
			break
		}
		if key := normalize(ph); !seen[key] {
			seen[key] = true
			out = append(out, ph)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
