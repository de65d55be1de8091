package correction

import "time"

// Stats is a point-in-time snapshot of a corrector's activity, for health
// endpoints and operational logging.
type Stats struct {
	// Calls is the total number of ApplyCorrections invocations.
	Calls int64 `json:"calls"`

	// CacheHits counts calls served from the result cache.
	CacheHits int64 `json:"cache_hits"`

	// Degraded counts calls that returned the original text after an
	// internal failure.
	Degraded int64 `json:"degraded"`

	// TotalMatches is the aggregate match count across all calls.
	TotalMatches int64 `json:"total_matches"`

	// MeanConfidence is the arithmetic mean of per-call confidence
	// scores, zero when no calls have been made.
	MeanConfidence float64 `json:"mean_confidence"`

	// CompiledPatterns is the current compiled-pattern cache size.
	CompiledPatterns int `json:"compiled_patterns"`

	// LastCall is the completion time of the most recent call, zero when
	// no calls have been made.
	LastCall time.Time `json:"last_call,omitzero"`
}

// Stats returns a snapshot of the corrector's counters.
func (c *Corrector) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	s := Stats{
		Calls:        c.calls,
		CacheHits:    c.cacheHits,
		Degraded:     c.degraded,
		TotalMatches: c.totalMatches,
		LastCall:     c.lastCall,
	}
	if c.catalog != nil {
		s.CompiledPatterns = c.catalog.Cache().Len()
	}
	if c.calls > 0 {
		s.MeanConfidence = c.confidenceSum / float64(c.calls)
	}
	return s
}
