// Package cache defines the generic key-value cache collaborator used by the
// correction engine, with in-memory and Redis-backed implementations.
//
// Caching is an optimization, never a correctness dependency: every caller
// treats a miss and an error identically and falls through to full
// recomputation. Implementations must be safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL-aware key-value store. Values are opaque byte slices;
// callers own serialization.
type Cache interface {
	// Get returns the value for key. ok is false on a miss or after the
	// entry's TTL has elapsed. A non-nil error indicates a backend failure;
	// callers log it at warn level and treat it as a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key for ttl. A non-positive ttl stores the
	// entry without expiry. Errors are non-fatal to callers.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
