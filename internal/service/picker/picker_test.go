package picker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordl-bot/wordl/internal/cache"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/mocks"
)

var testDay = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPicker(words *mocks.MockWordStore, opts ...Option) Picker {
	clock := domain.Clock{Now: func() time.Time { return testDay }, Location: time.UTC}
	return NewPicker(cache.NewWordCache(words, clock, discard()), words, discard(), opts...)
}

func alwaysZero(int) int { return 0 }

func TestPickQuestion_TwoWordScope(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(
		&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"},
		&domain.Word{UserID: 1, Source: "dog", Target: "it"},
	)
	p := newTestPicker(words, WithRandom(alwaysZero))

	q, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
	require.NoError(t, err)

	assert.Equal(t, "cat", q.Prompt)
	assert.Equal(t, "mushuk", q.Correct)
	assert.Equal(t, []string{"it", "nomuvofiq", "aniq emas"}, q.Distractors)
	assert.Len(t, q.Options(), 4)
}

func TestPickQuestion_NoWords(t *testing.T) {
	t.Parallel()
	p := newTestPicker(mocks.NewMockWordStore())

	q, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
	assert.Nil(t, q)
	assert.ErrorIs(t, err, domain.ErrNoWordsAvailable)
}

func TestPickQuestion_InvalidScope(t *testing.T) {
	t.Parallel()
	p := newTestPicker(mocks.NewMockWordStore())

	_, err := p.PickQuestion(context.Background(), domain.Scope{})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestPickQuestion_AvoidsImmediateRepeat(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(
		&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"},
		&domain.Word{UserID: 1, Source: "dog", Target: "it"},
	)
	p := newTestPicker(words, WithRandom(alwaysZero))
	ctx := context.Background()
	scope := domain.PersonalScope(1)

	var prompts []string
	for range 4 {
		q, err := p.PickQuestion(ctx, scope)
		require.NoError(t, err)
		prompts = append(prompts, q.Prompt)
	}
	assert.Equal(t, []string{"cat", "dog", "cat", "dog"}, prompts)

	p.Forget(scope)
	q, err := p.PickQuestion(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, "cat", q.Prompt, "forgotten scope starts fresh")
}

func TestPickQuestion_SingleWordRepeats(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"})
	p := newTestPicker(words)

	for range 3 {
		q, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
		require.NoError(t, err)
		assert.Equal(t, "cat", q.Prompt)
		assert.Equal(t, []string{"nomuvofiq", "aniq emas", "bog'liq emas"}, q.Distractors)
	}
}

func TestPickQuestion_SkipsInvariantViolations(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(
		&domain.Word{UserID: 1, Source: "bad", Target: "yomon", Level: -1},
		&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"},
	)
	p := newTestPicker(words, WithRandom(alwaysZero))

	for range 3 {
		q, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
		require.NoError(t, err)
		assert.Equal(t, "cat", q.Prompt)
	}
}

func TestPickQuestion_DistractorsAreDistinctFromAnswer(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"})
	words.LoadDistractorCandidatesFn = func(context.Context, domain.Scope, int64, int) ([]string, error) {
		return []string{"Mushuk", " it ", "IT", "", "ot", "nomuvofiq"}, nil
	}
	p := newTestPicker(words, WithRandom(alwaysZero))

	q, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"it", "ot", "nomuvofiq"}, q.Distractors)
}

func TestPickQuestion_PlaceholderMatchingAnswerIsSkipped(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(&domain.Word{UserID: 1, Source: "unknown", Target: "Aniq emas"})
	p := newTestPicker(words)

	q, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"nomuvofiq", "bog'liq emas", "bilinmaydi"}, q.Distractors)
}

func TestPickQuestion_StoreErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection reset")

	t.Run("eligible", func(t *testing.T) {
		words := mocks.NewMockWordStore()
		words.LoadEligibleFn = func(context.Context, domain.Scope, time.Time) ([]*domain.Word, error) {
			return nil, boom
		}
		p := newTestPicker(words)

		_, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("distractors", func(t *testing.T) {
		words := mocks.NewMockWordStore(&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"})
		words.LoadDistractorCandidatesFn = func(context.Context, domain.Scope, int64, int) ([]string, error) {
			return nil, boom
		}
		p := newTestPicker(words)

		_, err := p.PickQuestion(context.Background(), domain.PersonalScope(1))
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

func TestPickQuestion_GroupScopeUsesGroupWords(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore(
		&domain.Word{UserID: 1, Source: "mine", Target: "meniki"},
		&domain.Word{UserID: 2, GroupID: 7, Source: "sun", Target: "quyosh"},
	)
	p := newTestPicker(words, WithRandom(alwaysZero))

	q, err := p.PickQuestion(context.Background(), domain.GroupScope(1, 7))
	require.NoError(t, err)
	assert.Equal(t, "sun", q.Prompt)
}

func TestPickQuestion_RandomizedProperties(t *testing.T) {
	t.Parallel()
	var seed []*domain.Word
	for _, pair := range [][2]string{
		{"cat", "mushuk"}, {"dog", "it"}, {"sun", "quyosh"}, {"moon", "oy"},
		{"water", "suv"}, {"bread", "non"}, {"apple", "olma"}, {"book", "kitob"},
	} {
		seed = append(seed, &domain.Word{UserID: 1, Source: pair[0], Target: pair[1]})
	}
	words := mocks.NewMockWordStore(seed...)
	rng := rand.New(rand.NewPCG(1, 2))
	p := newTestPicker(words, WithRandom(rng.IntN), WithDistractorPool(5))
	scope := domain.PersonalScope(1)

	lastPrompt := ""
	for range 200 {
		q, err := p.PickQuestion(context.Background(), scope)
		require.NoError(t, err)

		assert.NotEqual(t, lastPrompt, q.Prompt)
		lastPrompt = q.Prompt

		require.Len(t, q.Distractors, domain.DistractorCount)
		seen := map[string]bool{strings.ToLower(q.Correct): true}
		for _, d := range q.Distractors {
			key := strings.ToLower(d)
			assert.False(t, seen[key], "duplicate option %q", d)
			seen[key] = true
		}
	}
}

func TestNewPicker_PanicsOnNilSources(t *testing.T) {
	t.Parallel()
	words := mocks.NewMockWordStore()
	eligible := cache.NewWordCache(words, domain.SystemClock(nil), nil)
	assert.Panics(t, func() { NewPicker(nil, words, nil) })
	assert.Panics(t, func() { NewPicker(eligible, nil, nil) })
}
