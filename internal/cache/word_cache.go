package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader reads the words eligible in a scope on a given calendar date.
// store.WordStore satisfies it.
type Loader interface {
	LoadEligible(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.Word, error)
}

// Invalidator drops cached eligible sets. Every mutation of word rows must call
// it after the write commits.
type Invalidator interface {
	// Invalidate drops the entry for exactly one scope.
	Invalidate(scope domain.Scope)
	// InvalidateGroup drops every entry of the group, for all learners.
	InvalidateGroup(groupID int64)
	// InvalidateWord drops every entry that can contain w: its owner's personal
	// scope and, when grouped, all scopes of its group.
	InvalidateWord(w *domain.Word)
	// InvalidateAll drops everything.
	InvalidateAll()
}

// WordCache memoizes the eligible word set per scope.
//
// Entries are loaded at most once concurrently per scope (single-flight) and
// are valid for the calendar day they were loaded on. Each invalidation bumps
// a generation counter; a load that started before an invalidation is returned
// to its callers but never installed, so a reader racing a writer cannot put
// pre-mutation data back into the cache.
type WordCache struct {
	loader Loader
	clock  domain.Clock
	logger *slog.Logger

	mu       sync.Mutex
	entries  map[domain.Scope]*entry
	epoch    uint64
	scopeGen map[domain.Scope]uint64
	groupGen map[int64]uint64

	flight singleflight.Group
	loads  atomic.Int64
}

type entry struct {
	day   time.Time
	words []*domain.Word
}

type generation struct {
	epoch, scope, group uint64
}

var _ Invalidator = (*WordCache)(nil)

// NewWordCache creates an empty cache reading through loader.
func NewWordCache(loader Loader, clock domain.Clock, logger *slog.Logger) *WordCache {
	if loader == nil {
		panic("loader cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WordCache{
		loader:   loader,
		clock:    clock,
		logger:   logger.With(slog.String("component", "word_cache")),
		entries:  make(map[domain.Scope]*entry),
		scopeGen: make(map[domain.Scope]uint64),
		groupGen: make(map[int64]uint64),
	}
}

// GetEligible returns the words eligible in scope today. The result is a copy
// the caller may modify freely.
func (c *WordCache) GetEligible(ctx context.Context, scope domain.Scope) ([]*domain.Word, error) {
	today := c.clock.Today()

	c.mu.Lock()
	if e, ok := c.entries[scope]; ok && e.day.Equal(today) {
		words := copyWords(e.words)
		c.mu.Unlock()
		return words, nil
	}
	gen := c.generationLocked(scope)
	c.mu.Unlock()

	key := fmt.Sprintf("%s@%s#%d.%d.%d", scope, domain.FormatDate(today), gen.epoch, gen.scope, gen.group)
	v, err, _ := c.flight.Do(key, func() (any, error) {
		c.loads.Add(1)
		// One caller's cancellation must not fail the others sharing this load.
		words, err := c.loader.LoadEligible(context.WithoutCancel(ctx), scope, today)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generationLocked(scope) == gen {
			c.entries[scope] = &entry{day: today, words: words}
		} else {
			c.logger.Debug("discarding load superseded by invalidation",
				slog.String("scope", scope.String()))
		}
		return words, nil
	})
	if err != nil {
		return nil, err
	}

	return copyWords(v.([]*domain.Word)), nil
}

// Invalidate drops the entry for scope.
func (c *WordCache) Invalidate(scope domain.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scope)
	c.scopeGen[scope]++
}

// InvalidateGroup drops every entry keyed on groupID.
func (c *WordCache) InvalidateGroup(groupID int64) {
	if groupID == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for scope := range c.entries {
		if scope.GroupID == groupID {
			delete(c.entries, scope)
		}
	}
	c.groupGen[groupID]++
}

// InvalidateWord drops the owner's personal scope and the word's group.
func (c *WordCache) InvalidateWord(w *domain.Word) {
	if w == nil {
		return
	}
	c.Invalidate(domain.PersonalScope(w.UserID))
	c.InvalidateGroup(w.GroupID)
}

// InvalidateAll empties the cache.
func (c *WordCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.epoch++
}

// Len returns the number of cached scopes.
func (c *WordCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Loads returns how many store loads the cache has issued.
func (c *WordCache) Loads() int64 {
	return c.loads.Load()
}

func (c *WordCache) generationLocked(scope domain.Scope) generation {
	return generation{
		epoch: c.epoch,
		scope: c.scopeGen[scope],
		group: c.groupGen[scope.GroupID],
	}
}

func copyWords(src []*domain.Word) []*domain.Word {
	out := make([]*domain.Word, len(src))
	for i, w := range src {
		cp := *w
		if w.NextEligible != nil {
			d := *w.NextEligible
			cp.NextEligible = &d
		}
		out[i] = &cp
	}
	return out
}
