// Package catalog owns the static correction pattern set shipped with
// Cliniscribe and a bounded cache of compiled patterns.
//
// Patterns are grouped into fixed categories (medication, pathology,
// cardiology, severity, valves, laboratory). Category iteration order is an
// explicit documented constant ([CategoryOrder]) so that "apply all
// categories" is reproducible across calls and across builds — ordering is a
// contract, not an accident of map enumeration.
//
// Compilation is lazy and memoised: the first application of a pattern
// compiles it and stores the result in a capacity-bounded LRU cache. Entries
// compiled by [Catalog.PreWarm] are pinned and never evicted. A pattern that
// fails to compile is reported as a structured error and skipped for that
// pass; it never aborts a correction call.
package catalog

import (
	"fmt"
	"regexp"
)

// Category identifies a group of static correction patterns.
type Category string

const (
	CategoryMedication Category = "medication"
	CategoryPathology  Category = "pathology"
	CategoryCardiology Category = "cardiology"
	CategorySeverity   Category = "severity"
	CategoryValves     Category = "valves"
	CategoryLaboratory Category = "laboratory"

	// CategoryAll selects every category in [CategoryOrder] order.
	CategoryAll Category = "all"
)

// CategoryOrder is the canonical iteration order used whenever
// [CategoryAll] is requested. Do not reorder: downstream rewrites depend on
// earlier categories having already run (severity compaction, for example,
// assumes valve names are already in canonical form).
var CategoryOrder = []Category{
	CategoryMedication,
	CategoryPathology,
	CategoryCardiology,
	CategorySeverity,
	CategoryValves,
	CategoryLaboratory,
}

// IsValid reports whether c names a known pattern category (CategoryAll
// included).
func (c Category) IsValid() bool {
	if c == CategoryAll {
		return true
	}
	for _, known := range CategoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// PatternEntry is one static correction rule: a regular expression source and
// its rewrite template. Static entries are process-wide constants loaded once
// at startup and never mutated.
type PatternEntry struct {
	// Category is the owning pattern category.
	Category Category

	// Pattern is the regular expression source. All static patterns embed
	// their own flags (typically a leading (?i) for case-insensitivity).
	Pattern string

	// Replace is the rewrite template, using $1-style capture references.
	Replace string

	// Domain optionally narrows the entry to a medical domain tag
	// (e.g., "cardiology"). Empty means the entry is unconditional.
	Domain string
}

// Catalog holds the static pattern tables and the shared compiled-pattern
// cache. A Catalog is safe for concurrent use: the pattern tables are
// read-only and the cache performs its own locking.
type Catalog struct {
	cache *CompiledCache
}

// Option is a functional option for configuring a [Catalog].
type Option func(*Catalog)

// WithCacheCapacity overrides the compiled-pattern cache capacity.
// Default: 500 entries.
func WithCacheCapacity(n int) Option {
	return func(c *Catalog) {
		c.cache = NewCompiledCache(n)
	}
}

// New returns a [Catalog] backed by the built-in static pattern tables.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		cache: NewCompiledCache(DefaultCacheCapacity),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Patterns returns the static entries for category in declaration order.
// Passing [CategoryAll] returns every category concatenated in
// [CategoryOrder] order. The returned slice is shared; callers must not
// modify it.
func (c *Catalog) Patterns(category Category) []PatternEntry {
	if category == CategoryAll {
		return allPatterns
	}
	return staticPatterns[category]
}

// Compile returns the compiled form of entry, consulting the bounded cache
// first. A malformed pattern is returned as an error; the caller is expected
// to log it and skip the entry for that pass.
func (c *Catalog) Compile(entry PatternEntry) (*regexp.Regexp, error) {
	return c.cache.Compile(cacheKey(string(entry.Category), entry.Pattern), entry.Pattern)
}

// PreWarm compiles and pins all entries in the given category so they can
// never be evicted. Call it at startup for categories expected to be hot.
// Returns an error naming the first malformed pattern; remaining entries in
// the category are still warmed.
func (c *Catalog) PreWarm(category Category) error {
	var firstErr error
	for _, entry := range c.Patterns(category) {
		key := cacheKey(string(entry.Category), entry.Pattern)
		if err := c.cache.Pin(key, entry.Pattern); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("catalog: pre-warm %s: %w", entry.Category, err)
		}
	}
	return firstErr
}

// Cache exposes the catalog's compiled-pattern cache so that other rewrite
// stages (dynamic, custom, and domain rule matchers) share the same bounded
// pool instead of recompiling per call.
func (c *Catalog) Cache() *CompiledCache {
	return c.cache
}

// cacheKey builds the composite cache key for a pattern. The category tag is
// part of the key so identical sources registered under different categories
// remain distinct entries (they may be pinned independently).
func cacheKey(category, pattern string) string {
	return category + "\x00" + pattern
}
