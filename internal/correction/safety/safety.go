// Package safety gatekeeps correction rules before they become active.
//
// Static catalog patterns are pre-audited and exempt; every dynamic, custom,
// and domain rule must pass [ValidateRule] before registration or
// application. Checks run in a fixed order and short-circuit on the first
// failure, producing a [Verdict] with a human-readable reason. Callers
// partition batches into accepted/rejected sets with [Partition] and must
// never apply a rejected rule.
//
// The pattern-danger checks are deliberately conservative static heuristics:
// a false positive costs one rejected rule, a false negative costs a
// runaway matcher on every dictation, so the heuristics err toward
// rejection.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxRuleLength bounds both the raw and fix text of any rule. Longer
// replacement text is rejected outright as a denial-of-service guard.
const MaxRuleLength = 100

// Rule is a single correction rule: replace whole-word occurrences of Raw
// with Fix. Rules are immutable once validated.
type Rule struct {
	// Raw is the mis-transcribed text to match (whole-word, case-insensitive).
	Raw string

	// Fix is the replacement text.
	Fix string

	// Category tags the rule for grouping and cache keying.
	Category string

	// Confidence is the registering caller's confidence in the rule (0.0-1.0).
	Confidence float64

	// Domain optionally scopes the rule to a registered medical domain.
	Domain string
}

// Verdict is the result of validating a single rule. It is transient:
// produced and consumed synchronously, never stored.
type Verdict struct {
	// Valid reports whether the rule passed every check.
	Valid bool

	// Reason is a human-readable explanation when Valid is false.
	Reason string

	// Suggestions optionally lists safer alternatives for a rejected rule.
	Suggestions []string
}

// PartitionResult holds the outcome of validating a batch of rules.
type PartitionResult struct {
	Valid   []Rule
	Invalid []RejectedRule
}

// RejectedRule pairs a rejected rule with its verdict so callers can report
// the rejection rather than silently dropping it.
type RejectedRule struct {
	Rule    Rule
	Verdict Verdict
}

// dangerUnboundedNested matches a quantified group followed by another
// unbounded quantifier — the classic catastrophic-backtracking shape
// (e.g. "(a+)+"). Go's RE2 engine does not backtrack, but rules may be
// exported to engines that do, so the shape is rejected regardless.
var dangerUnboundedNested = regexp.MustCompile(`\([^)]*[*+][^)]*\)[*+]`)

// dangerLongRepetition matches bounded repetition with a three-or-more-digit
// count (e.g. "a{100,}").
var dangerLongRepetition = regexp.MustCompile(`\{\d{3,}`)

// criticalTerms is the fixed set of safety-critical tokens: dose units,
// severity grades, measurement abbreviations, and valve/structure names.
// A rule whose raw side matches one of these may only change its case or
// formatting, never its meaning — rewriting "severe" to "mild" (or to
// anything that is not the same term) is rejected.
var criticalTerms = map[string]struct{}{
	// Dose units.
	"mg": {}, "mcg": {}, "ml": {}, "units": {}, "mmol": {},
	// Severity grades.
	"trivial": {}, "mild": {}, "moderate": {}, "severe": {}, "critical": {},
	// Measurement abbreviations.
	"mm": {}, "cm": {}, "mmhg": {}, "m/s": {}, "cm/s": {}, "bpm": {}, "ef": {},
	// Valves, chambers, and vessels.
	"aortic": {}, "mitral": {}, "tricuspid": {}, "pulmonary": {},
	"lad": {}, "lcx": {}, "rca": {}, "lms": {},
	"lv": {}, "rv": {}, "la": {}, "ra": {},
}

// ValidateRule runs every safety check against r in order, short-circuiting
// on the first failure.
func ValidateRule(r Rule) Verdict {
	raw := strings.TrimSpace(r.Raw)
	fix := strings.TrimSpace(r.Fix)

	if raw == "" {
		return reject("raw text cannot be empty")
	}
	if fix == "" {
		return reject("fix text cannot be empty")
	}

	critical := isCritical(raw)

	// Identical raw/fix is a useless rule. A pure case change is permitted
	// only for critical terms, where reformatting (e.g. "severe" -> "SEVERE")
	// is a legitimate report-style correction.
	if raw == fix {
		return reject("raw and fix cannot be identical")
	}
	if strings.EqualFold(raw, fix) && !critical {
		return reject("raw and fix cannot be identical (case-insensitive)")
	}

	if len(raw) > MaxRuleLength {
		return reject(fmt.Sprintf("raw text exceeds %d characters", MaxRuleLength))
	}
	if len(fix) > MaxRuleLength {
		return reject(fmt.Sprintf("fix text exceeds %d characters", MaxRuleLength))
	}

	if reason := dangerousPattern(raw); reason != "" {
		return reject(reason)
	}

	if critical && !strings.EqualFold(raw, fix) {
		return Verdict{
			Valid:  false,
			Reason: fmt.Sprintf("%q is a safety-critical term and cannot be rewritten to %q", raw, fix),
			Suggestions: []string{
				fmt.Sprintf("restrict the rule to a longer phrase containing %q", raw),
			},
		}
	}

	return Verdict{Valid: true}
}

// reject builds a failing verdict with the given reason.
func reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Partition validates each rule in rules and splits the batch into accepted
// and rejected sets. Input order is preserved within each set.
func Partition(rules []Rule) PartitionResult {
	var result PartitionResult
	for _, r := range rules {
		v := ValidateRule(r)
		if v.Valid {
			result.Valid = append(result.Valid, r)
		} else {
			result.Invalid = append(result.Invalid, RejectedRule{Rule: r, Verdict: v})
		}
	}
	return result
}

// dangerousPattern reports a non-empty reason when raw would compile to a
// pattern with a dangerous shape.
func dangerousPattern(raw string) string {
	if dangerUnboundedNested.MatchString(raw) {
		return "pattern contains nested unbounded quantifiers"
	}
	for _, la := range []string{"(?=", "(?!", "(?<"} {
		if strings.Contains(raw, la) {
			return "pattern contains lookaround assertions"
		}
	}
	if dangerLongRepetition.MatchString(raw) {
		return "pattern contains excessive bounded repetition"
	}
	return ""
}

// isCritical reports whether term (trimmed, lowercased) is in the
// safety-critical set.
func isCritical(term string) bool {
	_, ok := criticalTerms[strings.ToLower(strings.TrimSpace(term))]
	return ok
}
