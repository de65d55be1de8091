package catalog

import (
	"container/list"
	"fmt"
	"regexp"
	"sync"
)

// DefaultCacheCapacity is the default maximum number of compiled patterns
// held by a [CompiledCache]. Pinned entries count toward capacity but are
// never evicted.
const DefaultCacheCapacity = 500

// CompiledCache is a capacity-bounded, least-recently-used cache of compiled
// regular expressions keyed by a composite (category, source) key.
//
// Eviction skips pinned entries, so a fully pinned cache can exceed capacity
// only by the pinned set itself — unpinned entries are still evicted as soon
// as the cap is reached. Compiled patterns are immutable and shared read-only
// across concurrent correction calls.
type CompiledCache struct {
	capacity int

	mu      sync.Mutex
	order   *list.List // front = most recently used; holds *cacheEntry
	entries map[string]*list.Element
}

type cacheEntry struct {
	key    string
	re     *regexp.Regexp
	pinned bool
}

// NewCompiledCache returns a cache bounded to capacity entries. A
// non-positive capacity falls back to [DefaultCacheCapacity].
func NewCompiledCache(capacity int) *CompiledCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &CompiledCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Compile returns the compiled pattern for key, compiling source on a miss.
// Compilation failures are returned unwrapped in a structured error and are
// not cached — a later call with a corrected source under the same key
// succeeds.
func (c *CompiledCache) Compile(key, source string) (*regexp.Regexp, error) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		re := el.Value.(*cacheEntry).re
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	// Compile outside the lock; patterns are small but there is no reason to
	// serialise unrelated lookups behind a compile.
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("catalog: compile pattern %q: %w", source, err)
	}

	c.insert(key, re, false)
	return re, nil
}

// Pin compiles source under key and marks the entry as exempt from eviction.
// Pinning an already-cached entry upgrades it in place.
func (c *CompiledCache) Pin(key, source string) error {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).pinned = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	re, err := regexp.Compile(source)
	if err != nil {
		return fmt.Errorf("catalog: compile pattern %q: %w", source, err)
	}
	c.insert(key, re, true)
	return nil
}

// Len returns the current number of cached entries.
func (c *CompiledCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// insert stores a freshly compiled entry, evicting the least recently used
// unpinned entry when over capacity. Two goroutines racing to compile the
// same key both succeed; the loser's insert finds the key present and simply
// refreshes recency (lost compiles are tolerated, never incorrect).
func (c *CompiledCache) insert(key string, re *regexp.Regexp, pinned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		if pinned {
			el.Value.(*cacheEntry).pinned = true
		}
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, re: re, pinned: pinned})
	c.entries[key] = el

	for len(c.entries) > c.capacity {
		if !c.evictOldest() {
			break
		}
	}
}

// evictOldest removes the least recently used unpinned entry. Must be called
// with c.mu held. Returns false when every entry is pinned.
func (c *CompiledCache) evictOldest() bool {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		entry := el.Value.(*cacheEntry)
		if entry.pinned {
			continue
		}
		c.order.Remove(el)
		delete(c.entries, entry.key)
		return true
	}
	return false
}
