package llmsem_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cliniscribe/cliniscribe/internal/semantic"
	"github.com/cliniscribe/cliniscribe/internal/semantic/llmsem"
	"github.com/cliniscribe/cliniscribe/pkg/llm"
	"github.com/cliniscribe/cliniscribe/pkg/llm/mock"
)

func TestExtractTermsParsesResponse(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"terms":[{"term":"metoprolol","context":"on metoprolol 50mg","confidence":0.93}]}`,
		},
	}
	s := llmsem.New(p)

	terms, err := s.ExtractTerms(context.Background(), "on metro prolol 50mg", semantic.ExtractOptions{
		Domains: []string{"cardiology"},
	})
	if err != nil {
		t.Fatalf("ExtractTerms() error = %v", err)
	}
	if len(terms) != 1 || terms[0].Term != "metoprolol" {
		t.Fatalf("ExtractTerms() = %+v, want one metoprolol term", terms)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(calls))
	}
	if calls[0].Req.Temperature != 0 {
		t.Errorf("Temperature = %f, want 0", calls[0].Req.Temperature)
	}
}

func TestExtractTermsStripsCodeFences(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"terms\":[{\"term\":\"frusemide\",\"context\":\"\",\"confidence\":0.9}]}\n```",
		},
	}
	s := llmsem.New(p)

	terms, err := s.ExtractTerms(context.Background(), "frusemide", semantic.ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractTerms() error = %v", err)
	}
	if len(terms) != 1 || terms[0].Term != "frusemide" {
		t.Fatalf("ExtractTerms() = %+v, want one frusemide term", terms)
	}
}

func TestExtractTermsUnparseableIsNoOp(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Sure! Here are the terms I found:"},
	}
	s := llmsem.New(p)

	terms, err := s.ExtractTerms(context.Background(), "text", semantic.ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractTerms() error = %v, want nil for unparseable response", err)
	}
	if terms != nil {
		t.Errorf("ExtractTerms() = %v, want nil", terms)
	}
}

func TestExtractTermsPropagatesTransportError(t *testing.T) {
	t.Parallel()

	transportErr := errors.New("connection reset")
	p := &mock.Provider{CompleteErr: transportErr}
	s := llmsem.New(p)

	if _, err := s.ExtractTerms(context.Background(), "text", semantic.ExtractOptions{}); !errors.Is(err, transportErr) {
		t.Errorf("ExtractTerms() error = %v, want wrapped %v", err, transportErr)
	}
}

func TestDisambiguate(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"disambiguated_term":"mitral stenosis","confidence":0.88}`,
		},
	}
	s := llmsem.New(p)

	d, err := s.Disambiguate(context.Background(), "MS", "severe MS with preserved EF", semantic.DisambiguateOptions{
		PrimaryDomain: "cardiology",
	})
	if err != nil {
		t.Fatalf("Disambiguate() error = %v", err)
	}
	if d.DisambiguatedTerm != "mitral stenosis" {
		t.Errorf("DisambiguatedTerm = %q, want %q", d.DisambiguatedTerm, "mitral stenosis")
	}
}

func TestDisambiguateUnparseableEchoesTerm(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "not json"},
	}
	s := llmsem.New(p)

	d, err := s.Disambiguate(context.Background(), "MS", "ctx", semantic.DisambiguateOptions{})
	if err != nil {
		t.Fatalf("Disambiguate() error = %v, want nil", err)
	}
	if d.DisambiguatedTerm != "MS" || d.Confidence != 0 {
		t.Errorf("Disambiguate() = %+v, want term echoed with 0 confidence", d)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"patterns":["aortic stenosis"],"recommendations":["quantify gradient"],"clinical_coherence":0.95,"locale_compliance":true}`,
		},
	}
	s := llmsem.New(p)

	a, err := s.Analyze(context.Background(), "report text", semantic.AnalyzeOptions{FocusArea: "valvular disease"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.ClinicalCoherence != 0.95 || !a.LocaleCompliance {
		t.Errorf("Analyze() = %+v, want coherence 0.95 and locale compliance", a)
	}
	if len(a.Patterns) != 1 || a.Patterns[0] != "aortic stenosis" {
		t.Errorf("Patterns = %v, want [aortic stenosis]", a.Patterns)
	}
}
