// Package semantic defines the call contracts for the three external
// semantic-analysis services the correction pipeline may optionally invoke:
// medical term extraction, terminology disambiguation, and clinical context
// analysis.
//
// The pipeline consumes these interfaces but never depends on how they are
// implemented; llmsem provides an LLM-backed implementation and mock/ a test
// double. Every call is optional from the pipeline's perspective: a failure
// or timeout means the semantic stage is skipped, never that the correction
// fails.
package semantic

import "context"

// ExtractOptions scopes a term-extraction call.
type ExtractOptions struct {
	// Domains restricts extraction to the given clinical domains
	// (e.g. "cardiology"). Empty means all.
	Domains []string

	// Mode selects the extraction strategy, e.g. "comprehensive" or "fast".
	Mode string

	// SemanticAnalysis requests deeper contextual weighting of candidates.
	SemanticAnalysis bool

	// LocaleCompliance asks the service to prefer locale spellings
	// (Australian clinical English) when emitting terms.
	LocaleCompliance bool
}

// ExtractedTerm is one term found by the extraction service.
type ExtractedTerm struct {
	// Term is the term as it should appear in the corrected text.
	Term string `json:"term"`

	// Context is the surrounding fragment the term was found in.
	Context string `json:"context"`

	// Confidence is the service's confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// TermExtractor finds medical terms in free dictation text.
type TermExtractor interface {
	ExtractTerms(ctx context.Context, text string, opts ExtractOptions) ([]ExtractedTerm, error)
}

// DisambiguateOptions scopes a disambiguation call.
type DisambiguateOptions struct {
	// PrimaryDomain biases resolution toward one clinical domain.
	PrimaryDomain string

	// LocalePreference names the spelling convention to resolve into,
	// e.g. "en-AU".
	LocalePreference string

	// ConfidenceThreshold is the minimum confidence below which the service
	// should decline to disambiguate rather than guess.
	ConfidenceThreshold float64
}

// Disambiguation is the resolved reading of an ambiguous term.
type Disambiguation struct {
	// DisambiguatedTerm is the resolved term.
	DisambiguatedTerm string `json:"disambiguated_term"`

	// Confidence is the service's confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Disambiguator resolves an ambiguous clinical term given its context
// (e.g. "MS" as mitral stenosis vs multiple sclerosis).
type Disambiguator interface {
	Disambiguate(ctx context.Context, term, context string, opts DisambiguateOptions) (Disambiguation, error)
}

// AnalyzeOptions scopes a context-analysis call.
type AnalyzeOptions struct {
	// FocusArea narrows the analysis, e.g. "valvular disease".
	FocusArea string

	// IncludeLocaleGuidelines asks for locale-specific reporting guidance.
	IncludeLocaleGuidelines bool

	// DetailLevel is "summary" or "detailed".
	DetailLevel string
}

// Analysis is the clinical-reasoning view of a report.
type Analysis struct {
	// Patterns are clinical patterns recognised in the text.
	Patterns []string `json:"patterns"`

	// Recommendations are suggested follow-ups or phrasing improvements.
	Recommendations []string `json:"recommendations"`

	// ClinicalCoherence scores internal consistency of the report in [0, 1].
	ClinicalCoherence float64 `json:"clinical_coherence"`

	// LocaleCompliance reports whether the text follows the locale's
	// clinical spelling and unit conventions.
	LocaleCompliance bool `json:"locale_compliance"`
}

// ContextAnalyzer performs clinical-reasoning analysis over a whole report.
type ContextAnalyzer interface {
	Analyze(ctx context.Context, text string, opts AnalyzeOptions) (Analysis, error)
}

// Services bundles the three collaborators. Any field may be nil, in which
// case the corresponding analysis is skipped.
type Services struct {
	Extractor     TermExtractor
	Disambiguator Disambiguator
	Analyzer      ContextAnalyzer
}
