package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cliniscribe/cliniscribe/internal/correction"
	"github.com/cliniscribe/cliniscribe/internal/investigation"
)

func newTestServer(t *testing.T) *http.ServeMux {
	t.Helper()
	corrector := correction.New()
	s := &apiServer{
		corrector:  corrector,
		normalizer: investigation.NewNormalizer(corrector),
		defaults:   correction.Config{},
		logger:     slog.Default(),
	}
	mux := http.NewServeMux()
	s.register(mux)
	return mux
}

func TestHandleCorrect(t *testing.T) {
	mux := newTestServer(t)

	body := `{"text": "Patient on metro prolol."}`
	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp correctResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Text, "metoprolol") {
		t.Errorf("text = %q, want metoprolol substitution", resp.Text)
	}
	if resp.MatchCount != 1 {
		t.Errorf("match_count = %d, want 1", resp.MatchCount)
	}
	if resp.Degraded {
		t.Errorf("unexpected degradation: %s", resp.DegradedReason)
	}
}

func TestHandleCorrect_PerRequestOverride(t *testing.T) {
	mux := newTestServer(t)

	body := `{"text": "esophageal edema noted", "enable_locale": true}`
	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp correctResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Text, "oesophageal") || !strings.Contains(resp.Text, "oedema") {
		t.Errorf("locale override not applied: %q", resp.Text)
	}
}

func TestHandleCorrect_MalformedBody(t *testing.T) {
	mux := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(`{"text": 42`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCorrect_UnknownFieldRejected(t *testing.T) {
	mux := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(`{"txt": "hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleInvestigation(t *testing.T) {
	mux := newTestServer(t)

	body := `{"text": "TTE, 3rd January 2024: EF 55%."}`
	req := httptest.NewRequest("POST", "/v1/investigation", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp investigationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Text, "TTE (3 Jan 2024): ") {
		t.Errorf("text = %q, want normalized date header", resp.Text)
	}
}

func TestHandleStats(t *testing.T) {
	mux := newTestServer(t)

	// Drive one correction so the counters move.
	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(`{"text": "a trial fibrillation"}`))
	mux.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats correction.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Calls != 1 {
		t.Errorf("calls = %d, want 1", stats.Calls)
	}
}
