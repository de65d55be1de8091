package correction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// keyPrefixLength is how many characters of the input text feed the cache
// key. Hashing only a prefix trades a small false-hit risk on very long
// near-duplicate inputs for speed; dictated reports rarely share a 200-char
// prefix without being the same report.
const keyPrefixLength = 200

// cacheEntry is the serialized form of a memoized correction result.
type cacheEntry struct {
	Text       string    `json:"text"`
	MatchCount int       `json:"match_count"`
	Confidence float64   `json:"confidence"`
	CachedAt   time.Time `json:"cached_at"`
}

// resultCacheKey derives the stable digest for a (text, config) pair.
func resultCacheKey(text string, cfg Config) string {
	prefix := text
	if len(prefix) > keyPrefixLength {
		prefix = prefix[:keyPrefixLength]
	}
	sum := sha256.Sum256([]byte(prefix + "\x00" + cfg.Fingerprint()))
	return "correction:" + hex.EncodeToString(sum[:])
}

// cachedResult looks up a memoized result. Cache errors and misses both
// report !ok; caching is an optimization, never a correctness dependency.
func (c *Corrector) cachedResult(ctx context.Context, key string) (Result, bool) {
	if c.resultCache == nil {
		return Result{}, false
	}
	raw, ok, err := c.resultCache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("result cache read failed", "error", err)
		c.metrics.RecordCacheOp(ctx, "error")
		return Result{}, false
	}
	if !ok {
		c.metrics.RecordCacheOp(ctx, "miss")
		return Result{}, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("result cache entry corrupt", "error", err)
		c.metrics.RecordCacheOp(ctx, "error")
		return Result{}, false
	}
	c.metrics.RecordCacheOp(ctx, "hit")
	return Result{
		Text:       entry.Text,
		MatchCount: entry.MatchCount,
		Confidence: entry.Confidence,
		CacheHit:   true,
	}, true
}

// storeResult writes a completed result through to the cache. Failures are
// logged and otherwise ignored.
func (c *Corrector) storeResult(ctx context.Context, key string, res Result) {
	if c.resultCache == nil {
		return
	}
	raw, err := json.Marshal(cacheEntry{
		Text:       res.Text,
		MatchCount: res.MatchCount,
		Confidence: res.Confidence,
		CachedAt:   time.Now(),
	})
	if err != nil {
		c.logger.Warn("result cache marshal failed", "error", err)
		return
	}
	if err := c.resultCache.Set(ctx, key, raw, c.resultTTL); err != nil {
		c.logger.Warn("result cache write failed", "error", err)
		c.metrics.RecordCacheOp(ctx, "error")
	}
}
