package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cliniscribe/cliniscribe/internal/correction"
	"github.com/cliniscribe/cliniscribe/internal/investigation"
)

// maxBodyBytes bounds request bodies; dictation transcripts are short.
const maxBodyBytes = 1 << 20

// apiServer exposes the correction pipeline over HTTP:
//
//	POST /v1/correct       — full correction pipeline
//	POST /v1/investigation — investigation report normalizer
//	GET  /v1/stats         — corrector counters
type apiServer struct {
	corrector  *correction.Corrector
	normalizer *investigation.Normalizer
	defaults   correction.Config
	logger     *slog.Logger
}

func (s *apiServer) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/correct", s.handleCorrect)
	mux.HandleFunc("POST /v1/investigation", s.handleInvestigation)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
}

// correctRequest lets callers override the configured stage toggles per
// request. Absent fields fall back to the server defaults.
type correctRequest struct {
	Text           string  `json:"text"`
	MedicalDomain  *string `json:"medical_domain,omitempty"`
	EnableDynamic  *bool   `json:"enable_dynamic,omitempty"`
	EnableLocale   *bool   `json:"enable_locale,omitempty"`
	EnableSemantic *bool   `json:"enable_semantic,omitempty"`
}

type correctResponse struct {
	Text           string  `json:"text"`
	MatchCount     int     `json:"match_count"`
	Confidence     float64 `json:"confidence"`
	CacheHit       bool    `json:"cache_hit"`
	Degraded       bool    `json:"degraded"`
	DegradedReason string  `json:"degraded_reason,omitempty"`
}

func (s *apiServer) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req correctRequest
	if !s.decode(w, r, &req) {
		return
	}

	cfg := s.defaults
	if req.MedicalDomain != nil {
		cfg.MedicalDomain = *req.MedicalDomain
	}
	if req.EnableDynamic != nil {
		cfg.EnableDynamic = *req.EnableDynamic
	}
	if req.EnableLocale != nil {
		cfg.EnableLocale = *req.EnableLocale
	}
	if req.EnableSemantic != nil {
		cfg.EnableSemantic = *req.EnableSemantic
	}

	res := s.corrector.ApplyCorrections(r.Context(), req.Text, cfg)
	s.writeJSON(w, http.StatusOK, correctResponse{
		Text:           res.Text,
		MatchCount:     res.MatchCount,
		Confidence:     res.Confidence,
		CacheHit:       res.CacheHit,
		Degraded:       res.Degraded,
		DegradedReason: res.DegradedReason,
	})
}

type investigationRequest struct {
	Text          string `json:"text"`
	EnableDynamic *bool  `json:"enable_dynamic,omitempty"`
}

type investigationResponse struct {
	Text string `json:"text"`
}

func (s *apiServer) handleInvestigation(w http.ResponseWriter, r *http.Request) {
	var req investigationRequest
	if !s.decode(w, r, &req) {
		return
	}

	opts := investigation.Options{EnableDynamic: s.defaults.EnableDynamic}
	if req.EnableDynamic != nil {
		opts.EnableDynamic = *req.EnableDynamic
	}

	out := s.normalizer.Normalize(r.Context(), req.Text, opts)
	s.writeJSON(w, http.StatusOK, investigationResponse{Text: out})
}

func (s *apiServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.corrector.Stats())
}

// decode reads a JSON body into v, writing a 400 and returning false on
// malformed input.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, `{"error":"malformed request body"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "err", err)
	}
}
