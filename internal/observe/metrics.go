// Package observe provides application-wide observability primitives for
// Cliniscribe: OpenTelemetry metrics, tracing helpers, structured logging,
// and HTTP middleware for the admin endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
//
// The correction pipeline treats every recording as fire-and-forget: metrics
// never affect control flow.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Cliniscribe metrics.
const meterName = "github.com/cliniscribe/cliniscribe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Histograms ---

	// CorrectionDuration tracks end-to-end correction latency. Use with
	// attribute.String("entry", "corrections"|"investigation").
	CorrectionDuration metric.Float64Histogram

	// Confidence tracks the confidence score distribution of completed
	// corrections.
	Confidence metric.Float64Histogram

	// InputLength tracks input text length in characters.
	InputLength metric.Int64Histogram

	// OutputLength tracks corrected text length in characters.
	OutputLength metric.Int64Histogram

	// --- Counters ---

	// PatternMatches counts pattern replacements by stage. Use with
	//   attribute.String("stage", "static"|"dynamic"|"custom"|"domain"|"locale")
	PatternMatches metric.Int64Counter

	// CacheOps counts result-cache operations. Use with
	//   attribute.String("outcome", "hit"|"miss"|"error")
	CacheOps metric.Int64Counter

	// DegradedCalls counts corrections that degraded to the original text.
	DegradedCalls metric.Int64Counter

	// RulesRejected counts rules rejected by the safety validator.
	RulesRejected metric.Int64Counter

	// --- Error counters ---

	// CollaboratorErrors counts external-collaborator failures. Use with
	//   attribute.String("collaborator", "dynrules"|"cache"|"semantic")
	CollaboratorErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks admin-endpoint request processing time. Use
	// with attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries in seconds. Correction
// calls are CPU-bound rewrites plus at most a couple of collaborator round
// trips, so the buckets skew low.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// confidenceBuckets spans the scorer's output range (0.6 floor, 1.0 cap).
var confidenceBuckets = []float64{0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CorrectionDuration, err = m.Float64Histogram("cliniscribe.correction.duration",
		metric.WithDescription("End-to-end latency of a correction call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Confidence, err = m.Float64Histogram("cliniscribe.correction.confidence",
		metric.WithDescription("Confidence score distribution of completed corrections."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InputLength, err = m.Int64Histogram("cliniscribe.correction.input_length",
		metric.WithDescription("Input text length in characters."),
		metric.WithUnit("{char}"),
	); err != nil {
		return nil, err
	}
	if met.OutputLength, err = m.Int64Histogram("cliniscribe.correction.output_length",
		metric.WithDescription("Corrected text length in characters."),
		metric.WithUnit("{char}"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PatternMatches, err = m.Int64Counter("cliniscribe.correction.pattern_matches",
		metric.WithDescription("Total pattern replacements by pipeline stage."),
	); err != nil {
		return nil, err
	}
	if met.CacheOps, err = m.Int64Counter("cliniscribe.result_cache.ops",
		metric.WithDescription("Result-cache operations by outcome."),
	); err != nil {
		return nil, err
	}
	if met.DegradedCalls, err = m.Int64Counter("cliniscribe.correction.degraded",
		metric.WithDescription("Corrections that degraded to returning the original text."),
	); err != nil {
		return nil, err
	}
	if met.RulesRejected, err = m.Int64Counter("cliniscribe.safety.rules_rejected",
		metric.WithDescription("Rules rejected by the safety validator."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.CollaboratorErrors, err = m.Int64Counter("cliniscribe.collaborator.errors",
		metric.WithDescription("External-collaborator failures by collaborator."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("cliniscribe.http.request.duration",
		metric.WithDescription("Admin endpoint request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCorrection records the standard fire-and-forget measurement set for
// one completed correction call.
func (m *Metrics) RecordCorrection(ctx context.Context, inputLen, outputLen, matchCount int, confidence float64, localeRequested bool) {
	attrs := metric.WithAttributes(attribute.Bool("locale_requested", localeRequested))
	m.InputLength.Record(ctx, int64(inputLen), attrs)
	m.OutputLength.Record(ctx, int64(outputLen), attrs)
	m.PatternMatches.Add(ctx, int64(matchCount), metric.WithAttributes(attribute.String("stage", "total")))
	m.Confidence.Record(ctx, confidence, attrs)
}

// RecordCacheOp records a result-cache operation outcome ("hit", "miss" or
// "error").
func (m *Metrics) RecordCacheOp(ctx context.Context, outcome string) {
	m.CacheOps.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCollaboratorError records a failed call to an external collaborator.
func (m *Metrics) RecordCollaboratorError(ctx context.Context, collaborator string) {
	m.CollaboratorErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("collaborator", collaborator)))
}
