package dynrules

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched snapshot is served before the cache
// refreshes from the provider.
const DefaultTTL = 15 * time.Minute

// Cache wraps a [Provider] with a TTL snapshot cache. Concurrent refreshes
// are collapsed into a single provider call, and when a refresh fails the
// last good snapshot keeps being served so the correction hot path never
// degrades on a transient store outage.
//
// Cache is safe for concurrent use.
type Cache struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	snap      Snapshot
	hasSnap   bool
	expiresAt time.Time
}

// CacheOption configures a [Cache].
type CacheOption func(*Cache)

// WithTTL overrides [DefaultTTL]. Non-positive values are ignored.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// withNow replaces the clock. Test seam.
func withNow(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache over provider. The first Snapshot call fetches.
func NewCache(provider Provider, opts ...CacheOption) *Cache {
	c := &Cache{
		provider: provider,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state. The second return value is false only
// when no snapshot has ever been fetched successfully; the correction
// pipeline then skips its dynamic stage. A stale snapshot is returned (with
// true) when a refresh fails.
func (c *Cache) Snapshot(ctx context.Context) (Snapshot, bool) {
	c.mu.RLock()
	if c.hasSnap && c.now().Before(c.expiresAt) {
		snap := c.snap
		c.mu.RUnlock()
		return snap, true
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("state", func() (any, error) {
		// Another goroutine may have refreshed while we waited on the group.
		c.mu.RLock()
		if c.hasSnap && c.now().Before(c.expiresAt) {
			snap := c.snap
			c.mu.RUnlock()
			return snap, nil
		}
		c.mu.RUnlock()

		snap, err := c.provider.FetchState(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if snap.FetchedAt.IsZero() {
			snap.FetchedAt = c.now()
		}

		c.mu.Lock()
		c.snap = snap
		c.hasSnap = true
		c.expiresAt = c.now().Add(c.ttl)
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.hasSnap {
			slog.Warn("dynamic rules refresh failed, serving stale snapshot",
				"error", err, "fetched_at", c.snap.FetchedAt)
			return c.snap, true
		}
		slog.Warn("dynamic rules unavailable", "error", err)
		return Snapshot{}, false
	}
	return v.(Snapshot), true
}

// Prime fetches eagerly, for warm-up at startup. Unlike Snapshot it reports
// the provider error so the caller can log or abort.
func (c *Cache) Prime(ctx context.Context) error {
	snap, err := c.provider.FetchState(ctx)
	if err != nil {
		return err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = c.now()
	}
	c.mu.Lock()
	c.snap = snap
	c.hasSnap = true
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
	return nil
}

// Invalidate expires the current snapshot so the next Snapshot call
// refreshes. The stale snapshot is kept for failure fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
