package cache

import (
	"context"
	"sync"
	"time"
)

// Compile-time assertion that Memory satisfies the Cache interface.
var _ Cache = (*Memory)(nil)

// Memory is a process-local [Cache] backed by a map. Expired entries are
// dropped lazily on read and opportunistically on write, so memory use is
// bounded by the working set plus whatever expired entries have not been
// touched since. Suitable for single-process deployments and tests.
type Memory struct {
	// now is replaceable in tests.
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemory returns an initialised [Memory] cache.
func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements [Cache.Get]. It never returns an error.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := m.entries[key]; still && !cur.expiresAt.IsZero() && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements [Cache.Set]. It never returns an error.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: expires}
	m.pruneLocked()
	m.mu.Unlock()
	return nil
}

// pruneLocked drops a handful of expired entries per write so the map does
// not grow without bound under a write-heavy, read-light workload. Must be
// called with m.mu held.
func (m *Memory) pruneLocked() {
	const maxScan = 8
	now := m.now()
	scanned := 0
	for k, e := range m.entries {
		if scanned++; scanned > maxScan {
			return
		}
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
