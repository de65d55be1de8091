// Package llmsem implements the three semantic-analysis services over an
// [llm.Provider] with conservative, strictly structured JSON prompts.
//
// Each call sends the text to the model with a system prompt that demands a
// JSON-only response in a fixed shape. Markdown code fences are stripped
// before parsing. When the model's response cannot be parsed, each service
// returns a harmless zero result and a nil error — the correction pipeline
// treats semantic analysis as best-effort and must never fail because a
// model rambled.
package llmsem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cliniscribe/cliniscribe/internal/semantic"
	"github.com/cliniscribe/cliniscribe/pkg/llm"
)

const defaultTemperature = 0.0

const extractPromptTemplate = `You are a medical terminology extraction service for clinical dictation.

Your task: list the medical terms present in the provided text.

Rules:
- ONLY list terms that actually appear in the text (possibly misspelled by the speech recogniser).
- For each term give the canonical spelling, the surrounding fragment, and your confidence.
- Restrict yourself to these clinical domains: %s.
- Prefer Australian clinical spelling (oesophageal, anaemia, haemoglobin).
- Be conservative: when unsure whether a word is a medical term, omit it.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "terms": [
    {"term": "<canonical term>", "context": "<surrounding fragment>", "confidence": <0.0-1.0>}
  ]
}

If no medical terms are present, return an empty terms array.`

const disambiguatePromptTemplate = `You are a clinical terminology disambiguation service.

Your task: resolve an ambiguous clinical term or abbreviation given its context.

Rules:
- The primary clinical domain is: %s.
- Resolve into the %s spelling convention.
- If your confidence would be below %.2f, return the term unchanged with that confidence instead of guessing.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"disambiguated_term": "<resolved term>", "confidence": <0.0-1.0>}`

const analyzePromptTemplate = `You are a clinical-reasoning analysis service for dictated reports.

Your task: assess the clinical coherence of the provided report text.

Rules:
- Focus area: %s.
- Detail level: %s.
- List recognised clinical patterns and any recommendations.
- Score clinical coherence between 0.0 (contradictory) and 1.0 (fully consistent).
- Report whether the text follows Australian clinical spelling and unit conventions.%s

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "patterns": ["<pattern>"],
  "recommendations": ["<recommendation>"],
  "clinical_coherence": <0.0-1.0>,
  "locale_compliance": <true|false>
}`

// Option is a functional option for configuring a [Service].
type Option func(*Service)

// WithTemperature sets the LLM sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(s *Service) {
		s.temperature = temp
	}
}

// WithMaxTokens caps the completion length per analysis call.
func WithMaxTokens(n int) Option {
	return func(s *Service) {
		s.maxTokens = n
	}
}

// Service implements all three semantic collaborator interfaces over a
// single [llm.Provider]. It is safe for concurrent use.
//
// Model selection follows the one-provider-per-model pattern: construct the
// [llm.Provider] with the model you want, rather than overriding per call.
type Service struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

var (
	_ semantic.TermExtractor   = (*Service)(nil)
	_ semantic.Disambiguator   = (*Service)(nil)
	_ semantic.ContextAnalyzer = (*Service)(nil)
)

// New returns a new [Service] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Services returns the service bundled as a [semantic.Services] value.
func (s *Service) Services() semantic.Services {
	return semantic.Services{Extractor: s, Disambiguator: s, Analyzer: s}
}

// ExtractTerms implements [semantic.TermExtractor].
//
// When the model response is unparseable, ExtractTerms returns a nil slice
// and a nil error. Context cancellation and network errors are returned as
// non-nil errors.
func (s *Service) ExtractTerms(ctx context.Context, text string, opts semantic.ExtractOptions) ([]semantic.ExtractedTerm, error) {
	domains := "all clinical domains"
	if len(opts.Domains) > 0 {
		domains = strings.Join(opts.Domains, ", ")
	}
	sysPrompt := fmt.Sprintf(extractPromptTemplate, domains)

	content, err := s.complete(ctx, sysPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("llmsem: extract terms: %w", err)
	}

	var r struct {
		Terms []semantic.ExtractedTerm `json:"terms"`
	}
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &r); err != nil {
		// Unparseable response: no terms, no error.
		return nil, nil //nolint:nilerr // intentional graceful fallback
	}
	return r.Terms, nil
}

// Disambiguate implements [semantic.Disambiguator].
//
// When the model response is unparseable, Disambiguate returns the term
// unchanged with zero confidence and a nil error.
func (s *Service) Disambiguate(ctx context.Context, term, termContext string, opts semantic.DisambiguateOptions) (semantic.Disambiguation, error) {
	domain := opts.PrimaryDomain
	if domain == "" {
		domain = "general medicine"
	}
	locale := opts.LocalePreference
	if locale == "" {
		locale = "en-AU"
	}
	sysPrompt := fmt.Sprintf(disambiguatePromptTemplate, domain, locale, opts.ConfidenceThreshold)
	userMsg := fmt.Sprintf("Term: %s\n\nContext: %s", term, termContext)

	content, err := s.complete(ctx, sysPrompt, userMsg)
	if err != nil {
		return semantic.Disambiguation{}, fmt.Errorf("llmsem: disambiguate %q: %w", term, err)
	}

	var d semantic.Disambiguation
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &d); err != nil {
		return semantic.Disambiguation{DisambiguatedTerm: term}, nil //nolint:nilerr // intentional graceful fallback
	}
	if d.DisambiguatedTerm == "" {
		d.DisambiguatedTerm = term
	}
	return d, nil
}

// Analyze implements [semantic.ContextAnalyzer].
//
// When the model response is unparseable, Analyze returns a zero [Analysis]
// and a nil error.
func (s *Service) Analyze(ctx context.Context, text string, opts semantic.AnalyzeOptions) (semantic.Analysis, error) {
	focus := opts.FocusArea
	if focus == "" {
		focus = "whole report"
	}
	detail := opts.DetailLevel
	if detail == "" {
		detail = "summary"
	}
	guidelines := ""
	if opts.IncludeLocaleGuidelines {
		guidelines = "\n- Include locale-specific reporting guideline recommendations."
	}
	sysPrompt := fmt.Sprintf(analyzePromptTemplate, focus, detail, guidelines)

	content, err := s.complete(ctx, sysPrompt, text)
	if err != nil {
		return semantic.Analysis{}, fmt.Errorf("llmsem: analyze: %w", err)
	}

	var a semantic.Analysis
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &a); err != nil {
		return semantic.Analysis{}, nil //nolint:nilerr // intentional graceful fallback
	}
	return a, nil
}

func (s *Service) complete(ctx context.Context, sysPrompt, userMsg string) (string, error) {
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: sysPrompt,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
		Messages: []llm.Message{
			{Role: "user", Content: userMsg},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
