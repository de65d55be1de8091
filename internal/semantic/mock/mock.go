// Package mock provides test doubles for the three semantic-analysis
// service interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/cliniscribe/cliniscribe/internal/semantic"
)

// Extractor is a mock semantic.TermExtractor.
type Extractor struct {
	mu sync.Mutex

	// Terms is returned by ExtractTerms when Err is nil.
	Terms []semantic.ExtractedTerm

	// Err, if non-nil, is returned by ExtractTerms.
	Err error

	// Calls counts invocations.
	Calls int

	// LastText records the text passed to the most recent call.
	LastText string
}

var _ semantic.TermExtractor = (*Extractor)(nil)

// ExtractTerms implements semantic.TermExtractor.
func (e *Extractor) ExtractTerms(ctx context.Context, text string, opts semantic.ExtractOptions) ([]semantic.ExtractedTerm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	e.LastText = text
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Terms, nil
}

// Disambiguator is a mock semantic.Disambiguator.
type Disambiguator struct {
	mu sync.Mutex

	// Result is returned by Disambiguate when Err is nil. When the zero
	// value, the input term is echoed back with confidence 1.
	Result semantic.Disambiguation

	// Err, if non-nil, is returned by Disambiguate.
	Err error

	// Calls counts invocations.
	Calls int
}

var _ semantic.Disambiguator = (*Disambiguator)(nil)

// Disambiguate implements semantic.Disambiguator.
func (d *Disambiguator) Disambiguate(ctx context.Context, term, termContext string, opts semantic.DisambiguateOptions) (semantic.Disambiguation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return semantic.Disambiguation{}, d.Err
	}
	if d.Result.DisambiguatedTerm == "" {
		return semantic.Disambiguation{DisambiguatedTerm: term, Confidence: 1}, nil
	}
	return d.Result, nil
}

// Analyzer is a mock semantic.ContextAnalyzer.
type Analyzer struct {
	mu sync.Mutex

	// Result is returned by Analyze when Err is nil.
	Result semantic.Analysis

	// Err, if non-nil, is returned by Analyze.
	Err error

	// Calls counts invocations.
	Calls int
}

var _ semantic.ContextAnalyzer = (*Analyzer)(nil)

// Analyze implements semantic.ContextAnalyzer.
func (a *Analyzer) Analyze(ctx context.Context, text string, opts semantic.AnalyzeOptions) (semantic.Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls++
	if a.Err != nil {
		return semantic.Analysis{}, a.Err
	}
	return a.Result, nil
}
