package correction

// Result is the outcome of one correction call. Correction is always
// best-effort: a Result is returned even when the pipeline degrades, in
// which case Text holds the original input unchanged and Degraded is set.
type Result struct {
	// Text is the corrected (or, when degraded, original) text.
	Text string

	// MatchCount is the total number of pattern replacements across all
	// stages. Zero for a degraded call.
	MatchCount int

	// Confidence is the scorer's 0-1 estimate for this rewrite. It is 1.0
	// when the text needed no changes.
	Confidence float64

	// Degraded reports that an unexpected internal error was caught and the
	// original text was returned unmodified.
	Degraded bool

	// DegradedReason explains the degradation when Degraded is true.
	DegradedReason string

	// CacheHit reports that the result was served from the result cache.
	CacheHit bool
}
