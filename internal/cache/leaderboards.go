package cache

import (
	"context"
	"sync"
	"time"
)

// Invalidator defines a cache invalidation contract. Sync runs invalidate after
// writing fresh activities so leaderboard reads never serve a stale season.
type Invalidator interface {
	Invalidate(ctx context.Context, groupID string) error
	InvalidateAll(ctx context.Context) error
}

// NoopInvalidator is a no-op implementation.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(context.Context, string) error { return nil }

// InvalidateAll performs no action.
func (NoopInvalidator) InvalidateAll(context.Context) error { return nil }

// Key identifies one cached scoreboard: a group's activities for one season.
type Key struct {
	GroupID string
	Year    int
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Leaderboards is an in-process cache of computed scoreboard payloads. Entries
// expire after a TTL as a backstop; explicit invalidation after each sync run
// is the primary freshness mechanism.
type Leaderboards struct {
	mu      sync.RWMutex
	entries map[Key]entry
	ttl     time.Duration

	now func() time.Time
}

// NewLeaderboards constructs a Leaderboards cache. A zero TTL disables
// time-based expiry.
func NewLeaderboards(ttl time.Duration) *Leaderboards {
	return &Leaderboards{
		entries: make(map[Key]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached payload for key, if present and unexpired.
func (l *Leaderboards) Get(key Key) (interface{}, bool) {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && l.now().After(e.expiresAt) {
		l.mu.Lock()
		delete(l.entries, key)
		l.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores the payload for key.
func (l *Leaderboards) Set(key Key, value interface{}) {
	var expiresAt time.Time
	if l.ttl > 0 {
		expiresAt = l.now().Add(l.ttl)
	}

	l.mu.Lock()
	l.entries[key] = entry{value: value, expiresAt: expiresAt}
	l.mu.Unlock()
}

// Invalidate drops every cached year for a group.
func (l *Leaderboards) Invalidate(_ context.Context, groupID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.entries {
		if key.GroupID == groupID {
			delete(l.entries, key)
		}
	}
	return nil
}

// InvalidateAll empties the cache.
func (l *Leaderboards) InvalidateAll(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[Key]entry)
	return nil
}
