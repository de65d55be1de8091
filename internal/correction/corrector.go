// Package correction implements the multi-stage rewrite pipeline that turns
// raw clinical dictation into standardised report text.
//
// The [Corrector] is an explicitly constructed, dependency-injected service:
// it owns the pattern catalog, the result cache handle, and the registered
// custom/domain rule sets, and is passed to callers rather than retrieved
// from a global. Each [Corrector.ApplyCorrections] call runs a fixed stage
// sequence — result-cache check, static catalog patterns, dynamic rules,
// custom rules, domain rules, locale normalization, semantic enhancement,
// confidence scoring with cache write-through — where every stage reads the
// previous stage's output.
//
// Correction is always best-effort. A malformed pattern is skipped and
// logged; an unavailable collaborator degrades its stage; an unexpected
// internal error is caught at the entry point and the original text is
// returned with Result.Degraded set. No error or panic ever reaches the
// caller.
package correction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cliniscribe/cliniscribe/internal/cache"
	"github.com/cliniscribe/cliniscribe/internal/catalog"
	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
	"github.com/cliniscribe/cliniscribe/internal/dynrules"
	"github.com/cliniscribe/cliniscribe/internal/observe"
	"github.com/cliniscribe/cliniscribe/internal/phonetic"
	"github.com/cliniscribe/cliniscribe/internal/semantic"
)

// Semantic stage confidence thresholds. Extracted terms at or above
// semanticApplyThreshold are applied directly; terms between the accept and
// apply thresholds are confirmed through the disambiguator first.
const (
	semanticApplyThreshold  = 0.85
	semanticAcceptThreshold = 0.6
)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithCatalog replaces the default static pattern catalog. Mainly a test
// seam for exercising compile-failure paths.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *Corrector) {
		c.catalog = cat
	}
}

// WithDynamicRules attaches the dynamic rule cache. When nil (the default),
// the dynamic stage is skipped even if a call requests it.
func WithDynamicRules(d *dynrules.Cache) Option {
	return func(c *Corrector) {
		c.dynamic = d
	}
}

// WithResultCache attaches a result cache. When nil (the default), every
// call recomputes. Entries are written with the corrector's result TTL.
func WithResultCache(rc cache.Cache) Option {
	return func(c *Corrector) {
		c.resultCache = rc
	}
}

// WithResultTTL overrides the result-cache entry TTL. The default matches
// the dynamic-rules TTL so memoized results never outlive the rule snapshot
// they were computed from.
func WithResultTTL(ttl time.Duration) Option {
	return func(c *Corrector) {
		if ttl > 0 {
			c.resultTTL = ttl
		}
	}
}

// WithMetrics replaces the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Corrector) {
		c.metrics = m
	}
}

// WithSemanticServices attaches the external semantic-analysis
// collaborators. Any nil field skips the corresponding analysis.
func WithSemanticServices(s semantic.Services) Option {
	return func(c *Corrector) {
		c.services = s
	}
}

// WithPhoneticAssist enables glossary rescue inside the dynamic stage:
// tokens that no exact rule covered are matched phonetically against the
// snapshot's glossary terms. Off by default.
func WithPhoneticAssist(m *phonetic.Matcher) Option {
	return func(c *Corrector) {
		c.assist = m
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Corrector) {
		c.logger = l
	}
}

// Corrector is the correction pipeline orchestrator. It is safe for
// concurrent use: the catalog and compiled-pattern cache handle their own
// locking, and the registered rule maps are guarded by an RWMutex.
type Corrector struct {
	catalog     *catalog.Catalog
	dynamic     *dynrules.Cache
	resultCache cache.Cache
	resultTTL   time.Duration
	metrics     *observe.Metrics
	services    semantic.Services
	assist      *phonetic.Matcher
	semMatcher  *phonetic.Matcher
	logger      *slog.Logger

	mu          sync.RWMutex
	domainRules map[string][]safety.Rule
	customRules []safety.Rule

	statsMu       sync.Mutex
	calls         int64
	cacheHits     int64
	degraded      int64
	totalMatches  int64
	confidenceSum float64
	lastCall      time.Time
}

// New constructs a [Corrector] with the supplied options. By default it owns
// a fresh catalog, has no dynamic rules, result cache, or semantic services,
// and records to the process-wide default metrics.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		catalog:     catalog.New(),
		resultTTL:   dynrules.DefaultTTL,
		metrics:     observe.DefaultMetrics(),
		semMatcher:  phonetic.New(),
		logger:      slog.Default().With("component", "correction"),
		domainRules: make(map[string][]safety.Rule),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Catalog returns the corrector's pattern catalog, for startup pre-warming.
func (c *Corrector) Catalog() *catalog.Catalog {
	return c.catalog
}

// WarmUp pre-compiles and pins the given categories and primes the dynamic
// rule cache. It is the explicit startup hook the owning application calls;
// each failure is reported, none is fatal to later correction calls.
func (c *Corrector) WarmUp(ctx context.Context, hot ...catalog.Category) error {
	var errs []error
	for _, cat := range hot {
		if err := c.catalog.PreWarm(cat); err != nil {
			errs = append(errs, err)
		}
	}
	if c.dynamic != nil {
		if err := c.dynamic.Prime(ctx); err != nil {
			errs = append(errs, fmt.Errorf("correction: prime dynamic rules: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("correction: warm-up: %d failure(s), first: %w", len(errs), errs[0])
	}
	return nil
}

// ApplyCorrections runs the full correction pipeline over text. It never
// returns an error: any unexpected internal failure degrades the call to the
// original text with Result.Degraded set.
func (c *Corrector) ApplyCorrections(ctx context.Context, text string, cfg Config) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("correction pipeline failure, returning original text", "panic", r)
			c.metrics.DegradedCalls.Add(ctx, 1)
			res = Result{
				Text:           text,
				Degraded:       true,
				DegradedReason: fmt.Sprintf("internal error: %v", r),
			}
		}
		c.recordCall(res)
		c.metrics.CorrectionDuration.Record(ctx, time.Since(start).Seconds())
	}()

	ctx, span := observe.StartSpan(ctx, "correction.apply")
	defer span.End()

	key := resultCacheKey(text, cfg)
	if hit, ok := c.cachedResult(ctx, key); ok {
		return hit
	}

	out, matches := c.runStages(ctx, text, cfg)

	res = Result{
		Text:       out,
		MatchCount: matches,
		Confidence: scoreConfidence(text, out, matches),
	}
	c.storeResult(ctx, key, res)
	c.metrics.RecordCorrection(ctx, len(text), len(out), matches, res.Confidence, cfg.EnableLocale)
	return res
}

// ApplyStatic applies only the static catalog stage for the given categories
// (all categories when none are given). It is the entry point the
// investigation sub-pipeline builds on.
func (c *Corrector) ApplyStatic(ctx context.Context, text string, categories ...catalog.Category) (string, int) {
	if len(categories) == 0 {
		categories = catalog.CategoryOrder
	}
	return c.applyStatic(ctx, text, categories)
}

// RegisterDomainRules validates rules and registers the accepted ones under
// domain, replacing any previously registered set. The returned partition
// reports every rejection; rejected rules are never applied.
func (c *Corrector) RegisterDomainRules(domain string, rules []safety.Rule) safety.PartitionResult {
	part := safety.Partition(rules)
	c.reportRejections("domain", part.Invalid)

	c.mu.Lock()
	c.domainRules[domain] = part.Valid
	c.mu.Unlock()

	c.logger.Info("domain rules registered",
		"domain", domain, "accepted", len(part.Valid), "rejected", len(part.Invalid))
	return part
}

// AddCustomPattern validates and registers one persistent custom rule,
// applied on every call during the custom-rule stage (before any per-call
// rules). Returns an error carrying the validator's reason when rejected.
func (c *Corrector) AddCustomPattern(category, raw, fix string, confidence float64) error {
	rule := safety.Rule{Raw: raw, Fix: fix, Category: category, Confidence: confidence}
	if v := safety.ValidateRule(rule); !v.Valid {
		c.reportRejections("custom", []safety.RejectedRule{{Rule: rule, Verdict: v}})
		return fmt.Errorf("correction: rule rejected: %s", v.Reason)
	}

	c.mu.Lock()
	c.customRules = append(c.customRules, rule)
	c.mu.Unlock()
	return nil
}

// ReplaceCustomPatterns validates rules and replaces the registered custom
// pattern set wholesale. [Corrector.AddCustomPattern] is the incremental
// registration path; this one serves config reloads, where the new file's
// rule list supersedes the old one.
func (c *Corrector) ReplaceCustomPatterns(rules []safety.Rule) safety.PartitionResult {
	part := safety.Partition(rules)
	c.reportRejections("custom", part.Invalid)

	c.mu.Lock()
	c.customRules = part.Valid
	c.mu.Unlock()

	c.logger.Info("custom rules replaced",
		"accepted", len(part.Valid), "rejected", len(part.Invalid))
	return part
}

// ValidateCorrectionRules partitions rules into accepted and rejected sets
// without registering anything.
func (c *Corrector) ValidateCorrectionRules(rules []safety.Rule) safety.PartitionResult {
	return safety.Partition(rules)
}

// GlossaryTerms returns up to maxTerms glossary terms from the current
// dynamic snapshot. Returns nil when no dynamic rules are configured or no
// snapshot has ever been fetched.
func (c *Corrector) GlossaryTerms(ctx context.Context, maxTerms int) []string {
	if c.dynamic == nil || maxTerms <= 0 {
		return nil
	}
	snap, ok := c.dynamic.Snapshot(ctx)
	if !ok {
		return nil
	}
	terms := snap.GlossaryTerms
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	out := make([]string, len(terms))
	copy(out, terms)
	return out
}

// runStages executes stages 2-7 in order, returning the rewritten text and
// the aggregate match count.
func (c *Corrector) runStages(ctx context.Context, text string, cfg Config) (string, int) {
	matches := 0

	out, n := c.applyStatic(ctx, text, cfg.categoriesOrAll())
	matches += n

	if cfg.EnableDynamic {
		if c.dynamic == nil {
			c.logger.Debug("no dynamic rule cache attached, skipping dynamic stage")
		} else {
			out, n = c.applyDynamic(ctx, out)
			matches += n
		}
	}

	if custom := c.combinedCustomRules(cfg.CustomRules); len(custom) > 0 {
		out, n = c.applyRules(ctx, out, custom, "custom")
		matches += n
	}

	if cfg.MedicalDomain != "" {
		c.mu.RLock()
		rules := c.domainRules[cfg.MedicalDomain]
		c.mu.RUnlock()
		if len(rules) > 0 {
			out, n = c.applyRules(ctx, out, rules, "domain\x00"+cfg.MedicalDomain)
			matches += n
		}
	}

	if cfg.EnableLocale {
		out, n = applyLocale(out)
		matches += n
	}

	if cfg.EnableSemantic {
		out, n = c.applySemantic(ctx, out, cfg)
		matches += n
	}

	return out, matches
}

// applyStatic runs the catalog patterns for the given categories in order.
// Each pattern is applied globally; a malformed pattern is skipped and
// logged, never fatal.
func (c *Corrector) applyStatic(ctx context.Context, text string, categories []catalog.Category) (string, int) {
	matches := 0
	for _, cat := range categories {
		for _, entry := range c.catalog.Patterns(cat) {
			re, err := c.catalog.Compile(entry)
			if err != nil {
				c.logger.Warn("skipping malformed static pattern",
					"category", entry.Category, "error", err)
				continue
			}
			if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
				text = re.ReplaceAllString(text, entry.Replace)
				matches += n
			}
		}
	}
	return text, matches
}

// applyDynamic runs the dynamic-rule stage: fetch the snapshot, validate its
// rules, apply the accepted ones whole-word, and optionally rescue glossary
// terms phonetically. An unavailable provider skips the stage.
func (c *Corrector) applyDynamic(ctx context.Context, text string) (string, int) {
	ctx, span := observe.StartStageSpan(ctx, "dynamic")
	defer span.End()

	snap, ok := c.dynamic.Snapshot(ctx)
	if !ok {
		c.logger.Warn("dynamic rules unavailable, skipping dynamic stage")
		c.metrics.RecordCollaboratorError(ctx, "dynrules")
		return text, 0
	}

	part := safety.Partition(snap.Rules)
	c.reportRejections("dynamic", part.Invalid)

	out, matches := c.applyValidRules(text, part.Valid, "dynamic")

	if c.assist != nil && len(snap.GlossaryTerms) > 0 {
		var n int
		out, n = c.assistGlossary(out, snap.GlossaryTerms)
		matches += n
	}
	return out, matches
}

// applyRules validates and applies a rule batch with whole-word,
// case-insensitive replace semantics.
func (c *Corrector) applyRules(ctx context.Context, text string, rules []safety.Rule, stage string) (string, int) {
	part := safety.Partition(rules)
	c.reportRejections(stage, part.Invalid)
	return c.applyValidRules(text, part.Valid, stage)
}

// applyValidRules applies pre-validated rules. Raw text is compiled as a
// whole-word, case-insensitive matcher through the shared compiled-pattern
// cache; a rule whose raw text is not valid pattern syntax is skipped and
// logged.
func (c *Corrector) applyValidRules(text string, rules []safety.Rule, stage string) (string, int) {
	matches := 0
	for _, r := range rules {
		src := wholeWordPattern(r.Raw)
		re, err := c.catalog.Cache().Compile(stage+"\x00"+r.Raw, src)
		if err != nil {
			c.logger.Warn("skipping malformed rule", "stage", stage, "raw", r.Raw, "error", err)
			continue
		}
		if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
			text = re.ReplaceAllString(text, r.Fix)
			matches += n
		}
	}
	return text, matches
}

// assistGlossary phonetically rescues glossary terms: token windows that no
// exact rule covered are matched against the glossary and replaced with the
// canonical term.
func (c *Corrector) assistGlossary(text string, terms []string) (string, int) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, 0
	}

	// A term can surface split across one more token than it has words
	// ("enter resto" for "entresto"), so windows run one token wide.
	maxWords := 1
	for _, t := range terms {
		if n := len(strings.Fields(t)); n > maxWords {
			maxWords = n
		}
	}
	maxWords++

	var out []string
	matches := 0
	i := 0
	for i < len(tokens) {
		maxN := maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			term, _, ok := c.assist.Match(window, terms)
			if !ok {
				continue
			}
			out = append(out, strings.Fields(term)...)
			matches++
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	if matches == 0 {
		return text, 0
	}
	return strings.Join(out, " "), matches
}

// applySemantic runs the semantic enhancement stage. Extracted terms are
// located in the text phonetically and substituted; mid-confidence terms are
// confirmed through the disambiguator first; the context analyzer's verdict
// is logged. Any collaborator failure leaves the text as of the previous
// stage.
func (c *Corrector) applySemantic(ctx context.Context, text string, cfg Config) (string, int) {
	ctx, span := observe.StartStageSpan(ctx, "semantic")
	defer span.End()

	matches := 0

	if c.services.Extractor != nil {
		terms, err := c.services.Extractor.ExtractTerms(ctx, text, semantic.ExtractOptions{
			Domains:          extractDomains(cfg),
			Mode:             "comprehensive",
			SemanticAnalysis: true,
			LocaleCompliance: cfg.EnableLocale,
		})
		if err != nil {
			c.logger.Warn("term extraction failed, skipping semantic stage", "error", err)
			c.metrics.RecordCollaboratorError(ctx, "semantic")
			return text, 0
		}
		for _, t := range terms {
			fix, ok := c.confirmTerm(ctx, t, cfg)
			if !ok {
				continue
			}
			var n int
			text, n = c.substituteTerm(text, fix)
			matches += n
		}
	}

	if c.services.Analyzer != nil {
		analysis, err := c.services.Analyzer.Analyze(ctx, text, semantic.AnalyzeOptions{
			FocusArea:               cfg.MedicalDomain,
			IncludeLocaleGuidelines: cfg.EnableLocale,
			DetailLevel:             "summary",
		})
		if err != nil {
			c.logger.Warn("context analysis failed", "error", err)
			c.metrics.RecordCollaboratorError(ctx, "semantic")
		} else {
			c.logger.Debug("context analysis",
				"clinical_coherence", analysis.ClinicalCoherence,
				"locale_compliance", analysis.LocaleCompliance,
				"patterns", len(analysis.Patterns))
		}
	}

	return text, matches
}

// confirmTerm decides whether an extracted term should be applied. Terms at
// or above the apply threshold pass directly; terms in the accept band are
// confirmed through the disambiguator when one is configured.
func (c *Corrector) confirmTerm(ctx context.Context, t semantic.ExtractedTerm, cfg Config) (string, bool) {
	if t.Term == "" || t.Confidence < semanticAcceptThreshold {
		return "", false
	}
	if t.Confidence >= semanticApplyThreshold {
		return t.Term, true
	}
	if c.services.Disambiguator == nil {
		return "", false
	}
	d, err := c.services.Disambiguator.Disambiguate(ctx, t.Term, t.Context, semantic.DisambiguateOptions{
		PrimaryDomain:       cfg.MedicalDomain,
		LocalePreference:    "en-AU",
		ConfidenceThreshold: semanticApplyThreshold,
	})
	if err != nil {
		c.logger.Warn("disambiguation failed", "term", t.Term, "error", err)
		c.metrics.RecordCollaboratorError(ctx, "semantic")
		return "", false
	}
	if d.Confidence < semanticApplyThreshold || d.DisambiguatedTerm == "" {
		return "", false
	}
	return d.DisambiguatedTerm, true
}

// substituteTerm locates the surface form of term in text by phonetic
// matching over token windows and replaces it whole-word. Text that already
// contains the term verbatim is left alone.
func (c *Corrector) substituteTerm(text, term string) (string, int) {
	if containsFold(text, term) {
		return text, 0
	}

	tokens := strings.Fields(text)
	termWords := len(strings.Fields(term))
	matches := 0
	var out []string

	i := 0
	for i < len(tokens) {
		matched := false
		for n := min(termWords+1, len(tokens)-i); n >= 1 && !matched; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			if _, _, ok := c.semMatcher.Match(window, []string{term}); ok {
				out = append(out, strings.Fields(term)...)
				matches++
				i += n
				matched = true
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	if matches == 0 {
		return text, 0
	}
	return strings.Join(out, " "), matches
}

// combinedCustomRules merges the registered custom patterns with the
// per-call rules, registered first so callers can override them.
func (c *Corrector) combinedCustomRules(perCall []safety.Rule) []safety.Rule {
	c.mu.RLock()
	registered := c.customRules
	c.mu.RUnlock()
	if len(registered) == 0 {
		return perCall
	}
	combined := make([]safety.Rule, 0, len(registered)+len(perCall))
	combined = append(combined, registered...)
	combined = append(combined, perCall...)
	return combined
}

// reportRejections logs and counts safety-validator rejections. Rejections
// are also surfaced to the caller wherever the API returns a partition.
func (c *Corrector) reportRejections(stage string, rejected []safety.RejectedRule) {
	if len(rejected) == 0 {
		return
	}
	c.metrics.RulesRejected.Add(context.Background(), int64(len(rejected)))
	for _, rej := range rejected {
		c.logger.Warn("rule rejected by safety validator",
			"stage", stage, "raw", rej.Rule.Raw, "reason", rej.Verdict.Reason)
	}
}

// recordCall updates the running correction statistics.
func (c *Corrector) recordCall(res Result) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.calls++
	c.totalMatches += int64(res.MatchCount)
	c.confidenceSum += res.Confidence
	if res.CacheHit {
		c.cacheHits++
	}
	if res.Degraded {
		c.degraded++
	}
	c.lastCall = time.Now()
}

// extractDomains derives the extraction domain filter from the call config.
func extractDomains(cfg Config) []string {
	if cfg.MedicalDomain == "" {
		return nil
	}
	return []string{cfg.MedicalDomain}
}

// wholeWordPattern builds the case-insensitive whole-word matcher source for
// a rule's raw text. The raw text is pattern syntax, so malformed input
// surfaces as a compile error at the call site, not here.
func wholeWordPattern(raw string) string {
	return `(?i)\b(?:` + raw + `)\b`
}

// containsFold reports whether s contains substr case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
