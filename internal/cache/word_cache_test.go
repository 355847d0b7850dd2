package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordl-bot/wordl/internal/domain"
)

// fakeLoader serves a mutable word table and counts loads.
type fakeLoader struct {
	mu    sync.Mutex
	words []*domain.Word
	calls atomic.Int32
	err   error
	// gate, when set, blocks each load until it is closed or receives.
	gate chan struct{}
	// entered is signalled once per load before waiting on gate.
	entered chan struct{}
}

func (f *fakeLoader) LoadEligible(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error) {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var out []*domain.Word
	for _, w := range f.words {
		inScope := w.UserID == scope.UserID
		if scope.HasGroup() {
			inScope = w.GroupID == scope.GroupID
		}
		if inScope && w.IsEligible(asOf) {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLoader) set(words ...*domain.Word) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = words
}

func fixedClock(day time.Time) *domain.Clock {
	return &domain.Clock{Now: func() time.Time { return day }, Location: time.UTC}
}

func newTestCache(loader Loader, clock *domain.Clock) *WordCache {
	return NewWordCache(loader, *clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var today = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

func TestWordCache_GetEligibleCaches(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{}
	loader.set(
		&domain.Word{ID: 1, UserID: 1, Source: "cat", Target: "mushuk"},
		&domain.Word{ID: 2, UserID: 2, Source: "dog", Target: "it"},
	)
	c := newTestCache(loader, fixedClock(today))
	scope := domain.PersonalScope(1)

	first, err := c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	second, err := c.GetEligible(context.Background(), scope)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, int64(1), c.Loads())
}

func TestWordCache_ReturnsCopies(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{}
	loader.set(&domain.Word{ID: 1, UserID: 1, Target: "mushuk"})
	c := newTestCache(loader, fixedClock(today))

	words, err := c.GetEligible(context.Background(), domain.PersonalScope(1))
	require.NoError(t, err)
	words[0].Target = "changed"

	again, err := c.GetEligible(context.Background(), domain.PersonalScope(1))
	require.NoError(t, err)
	assert.Equal(t, "mushuk", again[0].Target)
}

func TestWordCache_InvalidateIsIdempotent(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{}
	loader.set(&domain.Word{ID: 1, UserID: 1})
	c := newTestCache(loader, fixedClock(today))
	scope := domain.PersonalScope(1)

	// Invalidating an empty key changes nothing observable.
	c.Invalidate(scope)
	c.Invalidate(scope)
	assert.Equal(t, 0, c.Len())

	_, err := c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.calls.Load())

	c.Invalidate(scope)
	c.Invalidate(scope)
	assert.Equal(t, 0, c.Len())

	_, err = c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	_, err = c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load(), "next read reloads exactly once")
}

func TestWordCache_ReloadsOnDayRollover(t *testing.T) {
	t.Parallel()
	tomorrow := domain.AddDays(today, 1)
	loader := &fakeLoader{}
	loader.set(
		&domain.Word{ID: 1, UserID: 1},
		&domain.Word{ID: 2, UserID: 1, NextEligible: &tomorrow},
	)
	now := today
	c := newTestCache(loader, &domain.Clock{Now: func() time.Time { return now }})
	scope := domain.PersonalScope(1)

	words, err := c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, words, 1)

	now = tomorrow.Add(time.Hour)
	words, err = c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, words, 2)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestWordCache_LoaderErrorNotCached(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{err: errors.New("db down")}
	c := newTestCache(loader, fixedClock(today))
	scope := domain.PersonalScope(1)

	_, err := c.GetEligible(context.Background(), scope)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()

	_, err = c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestWordCache_SingleFlight(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	loader.set(&domain.Word{ID: 1, UserID: 1})
	c := newTestCache(loader, fixedClock(today))
	scope := domain.PersonalScope(1)

	const callers = 20
	var wg sync.WaitGroup
	results := make([][]*domain.Word, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.GetEligible(context.Background(), scope)
	}()
	<-loader.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.GetEligible(context.Background(), scope)
		}()
	}

	// Let the followers reach the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	for i, r := range results {
		assert.Len(t, r, 1, "caller %d", i)
	}
}

// A read that loads before a write commits must not reinstall the stale set
// after the writer's invalidation.
func TestWordCache_ReadDuringWriteDoesNotInstallStaleSet(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	loader.set(&domain.Word{ID: 1, UserID: 1}, &domain.Word{ID: 2, UserID: 1})
	c := newTestCache(loader, fixedClock(today))
	scope := domain.PersonalScope(1)

	done := make(chan []*domain.Word)
	go func() {
		words, _ := c.GetEligible(context.Background(), scope)
		done <- words
	}()
	<-loader.entered

	// Writer: delete word 2, commit, then invalidate, all while the read is in flight.
	loader.set(&domain.Word{ID: 1, UserID: 1})
	c.Invalidate(scope)

	// The in-flight read finishes with its snapshot taken before the delete committed.
	loader.mu.Lock()
	loader.words = append(loader.words, &domain.Word{ID: 2, UserID: 1})
	loader.mu.Unlock()
	loader.gate <- struct{}{}
	stale := <-done
	assert.Len(t, stale, 2)
	assert.Equal(t, 0, c.Len(), "superseded load must not be installed")

	loader.set(&domain.Word{ID: 1, UserID: 1})
	close(loader.gate)
	go func() { <-loader.entered }()

	fresh, err := c.GetEligible(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, int64(1), fresh[0].ID)
}

func TestWordCache_InvalidateWordDropsAllContainingScopes(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{}
	loader.set(
		&domain.Word{ID: 1, UserID: 1, GroupID: 9},
		&domain.Word{ID: 2, UserID: 2, GroupID: 9},
		&domain.Word{ID: 3, UserID: 3},
	)
	c := newTestCache(loader, fixedClock(today))
	ctx := context.Background()

	for _, s := range []domain.Scope{
		domain.PersonalScope(1),
		domain.GroupScope(1, 9),
		domain.GroupScope(2, 9),
		domain.PersonalScope(3),
	} {
		_, err := c.GetEligible(ctx, s)
		require.NoError(t, err)
	}
	require.Equal(t, 4, c.Len())

	c.InvalidateWord(&domain.Word{ID: 1, UserID: 1, GroupID: 9})
	assert.Equal(t, 1, c.Len(), "only user 3's personal scope survives")

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestKeyedMutex(t *testing.T) {
	t.Parallel()
	km := NewKeyedMutex[domain.Scope]()
	scope := domain.PersonalScope(1)

	var inside atomic.Int32
	var maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(scope)
			defer unlock()
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, km.Len(), "idle keys are released")

	// Distinct keys do not block each other.
	unlockA := km.Lock(domain.PersonalScope(1))
	unlockB := km.Lock(domain.PersonalScope(2))
	assert.Equal(t, 2, km.Len())
	unlockA()
	unlockB()
}
