// Package investigation normalizes investigation and procedure report text
// (echo, angiogram, stress test findings) into the house reporting style.
//
// It is a specialized client of the correction pipeline: general static
// correction runs first, then a strictly ordered sequence of passes. The
// order is load-bearing — millimetre unit normalization must run before
// generic measurement parenthesization or values get double-wrapped, and
// exercise-test phrasing depends on digit adjacency earlier passes produce.
// Whitespace collapse is always the final pass.
package investigation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cliniscribe/cliniscribe/internal/correction"
)

// Options selects the per-call behaviour of [Normalizer.Normalize].
type Options struct {
	// EnableDynamic routes the initial correction through the dynamic rule
	// stage. [Normalizer.NormalizeSync] never does, and with this false the
	// two variants produce byte-identical output.
	EnableDynamic bool
}

// Option is a functional option for configuring a [Normalizer].
type Option func(*Normalizer)

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// Normalizer runs the investigation-report pass sequence. It is stateless
// beyond its corrector handle and safe for concurrent use.
type Normalizer struct {
	corrector *correction.Corrector
	logger    *slog.Logger
}

// NewNormalizer returns a [Normalizer] over the given corrector.
func NewNormalizer(c *correction.Corrector, opts ...Option) *Normalizer {
	n := &Normalizer{
		corrector: c,
		logger:    slog.Default().With("component", "investigation"),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize corrects and normalizes investigation report text. The general
// correction pipeline runs first (static always, dynamic per opts), then the
// fixed pass sequence. Like the corrector it never fails: worst case the
// passes run over the unchanged input.
func (n *Normalizer) Normalize(ctx context.Context, text string, opts Options) string {
	res := n.corrector.ApplyCorrections(ctx, text, correction.Config{
		EnableDynamic: opts.EnableDynamic,
	})
	if res.Degraded {
		n.logger.Warn("correction degraded, normalizing original text",
			"reason", res.DegradedReason)
	}
	return runPasses(res.Text)
}

// NormalizeSync is the synchronous variant: static correction only, no
// external collaborators, same pass ordering. Its output is byte-for-byte
// identical to [Normalizer.Normalize] with dynamic corrections disabled.
func (n *Normalizer) NormalizeSync(text string) string {
	out, _ := n.corrector.ApplyStatic(context.Background(), text)
	return runPasses(out)
}

// runPasses applies the six normalization passes in their fixed order.
func runPasses(text string) string {
	text = applyASRFixes(text)
	text = applyAbbreviations(text)
	text = applyDateHeader(text)
	text = applyBareHeader(text)
	text = applyMeasurements(text)
	text = applyExercisePhrasing(text)
	return collapseWhitespace(text)
}

// rewrite is one compiled pattern plus its replacement template.
type rewrite struct {
	pattern *regexp.Regexp
	replace string
}

// asrFixes corrects mis-transcriptions specific to investigation dictation:
// spelled-out comparators, letter-by-letter vessel and study abbreviations,
// and split compound study names.
var asrFixes = []rewrite{
	{regexp.MustCompile(`(?i)\bgreater than (\d)`), ">$1"},
	{regexp.MustCompile(`(?i)\bless than (\d)`), "<$1"},
	{regexp.MustCompile(`(?i)\bequal to (\d)`), "=$1"},
	{regexp.MustCompile(`(?i)\bL\.? ?A\.? ?D\b\.?`), "LAD"},
	{regexp.MustCompile(`(?i)\bR\.? ?C\.? ?A\b\.?`), "RCA"},
	{regexp.MustCompile(`(?i)\bT\.? ?T\.? ?E\b\.?`), "TTE"},
	{regexp.MustCompile(`(?i)\bT\.? ?O\.? ?E\b\.?`), "TOE"},
	{regexp.MustCompile(`(?i)\becho cardiogram\b`), "echocardiogram"},
	{regexp.MustCompile(`(?i)\belectro cardiogram\b`), "electrocardiogram"},
	{regexp.MustCompile(`(?i)\bmetabolic equivalents?\b`), "METs"},
}

// abbreviations rewrites full study names to the standard short forms.
// Entries are ordered most specific first so multi-word names win over their
// overlapping suffixes (both echocardiogram variants must precede any rule
// that would touch the bare word).
var abbreviations = []rewrite{
	{regexp.MustCompile(`(?i)\btrans-?thoracic echocardiogram\b`), "TTE"},
	{regexp.MustCompile(`(?i)\btrans-?o?esophageal echocardiogram\b`), "TOE"},
	{regexp.MustCompile(`(?i)\bcomputed tomography coronary angiogram\b`), "CTCA"},
	{regexp.MustCompile(`(?i)\bCT coronary angiogram\b`), "CTCA"},
	{regexp.MustCompile(`(?i)\bstress echocardiogram\b`), "stress echo"},
	{regexp.MustCompile(`(?i)\bexercise stress test\b`), "EST"},
	{regexp.MustCompile(`(?i)\belectrocardiogram\b`), "ECG"},
	{regexp.MustCompile(`(?i)\bcoronary angiogram\b`), "angiogram"},
}

func applyASRFixes(text string) string {
	for _, r := range asrFixes {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}

func applyAbbreviations(text string) string {
	for _, r := range abbreviations {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}

// dateHeader recognizes a leading "<STUDY>, <date>:" or "<STUDY> (<date>,
// ...):" prefix. Groups: 1 study, 2 day, 3 month name, 4 year.
var dateHeader = regexp.MustCompile(
	`^([A-Za-z][A-Za-z /]*?),?\s*\(?\s*(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]+),?\s+(\d{4})[^:)]*\)?\s*:`)

// monthAbbrev maps full and already-short month names (lowercased) to the
// canonical three-letter form.
var monthAbbrev = map[string]string{
	"january": "Jan", "february": "Feb", "march": "Mar", "april": "Apr",
	"may": "May", "june": "Jun", "july": "Jul", "august": "Aug",
	"september": "Sep", "october": "Oct", "november": "Nov", "december": "Dec",
	"jan": "Jan", "feb": "Feb", "mar": "Mar", "apr": "Apr", "jun": "Jun",
	"jul": "Jul", "aug": "Aug", "sep": "Sep", "sept": "Sep", "oct": "Oct",
	"nov": "Nov", "dec": "Dec",
}

// applyDateHeader rewrites a dated report header to the canonical
// "<STUDY> (DD Mon YYYY): " form. A header whose month is not recognizable
// is left untouched rather than half-rewritten.
func applyDateHeader(text string) string {
	m := dateHeader.FindStringSubmatchIndex(text)
	if m == nil {
		return text
	}
	study := strings.TrimSpace(text[m[2]:m[3]])
	day := strings.TrimLeft(text[m[4]:m[5]], "0")
	mon, ok := monthAbbrev[strings.ToLower(text[m[6]:m[7]])]
	if !ok {
		return text
	}
	year := text[m[8]:m[9]]
	return fmt.Sprintf("%s (%s %s %s): %s", study, day, mon, year, text[m[1]:])
}

// bareHeader matches an undated leading study header with sloppy spacing.
var bareHeader = regexp.MustCompile(`^([A-Z]{2,5}|[Ss]tress echo|[Aa]ngiogram)\s*:\s*`)

func applyBareHeader(text string) string {
	return bareHeader.ReplaceAllString(text, "$1: ")
}

// Measurement passes, in order. Millimetre expansion runs first: once a
// value reads "12mm (millimetres)" the parenthesization pass leaves it
// alone; reversed, the gloss would wrap an already-wrapped value.
var (
	millimetreUnit  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*millimet(er|re)s?\b`)
	hyphenatedUnit  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-\s*(mm|cm|mmHg)\b`)
	spacedUnit      = regexp.MustCompile(`(\d+(?:\.\d+)?) (mm|cm)\b`)
	bareDimension   = regexp.MustCompile(`\(?\b\d+(?:\.\d+)?(?:mm|cm)\b\)?`)
	labValueSpacing = regexp.MustCompile(`(?i)(\d)(mmol/L|g/L|mcg/L)`)
	pressurePhrase  = regexp.MustCompile(`(?i)\b(gradient|pressure)( of)? (\d+(?:\.\d+)?)( ?mmHg)?\b`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	exercisePhrase  = regexp.MustCompile(`(?i)\bexercised (?:for )?(\d+) ?min(?:ute)?s?,? ?(?:with )?(\d+(?:\.\d+)?) ?METs?\b`)
)

func applyMeasurements(text string) string {
	// "12 millimeters" -> "12mm (millimeters)", original spelling kept.
	text = millimetreUnit.ReplaceAllString(text, "${1}mm (millimet${2}s)")

	text = hyphenatedUnit.ReplaceAllString(text, "$1$2")
	text = spacedUnit.ReplaceAllString(text, "$1$2")

	// Wrap bare dimension values; anything already parenthesized passes
	// through unchanged.
	text = bareDimension.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "(") || strings.HasSuffix(m, ")") {
			return m
		}
		return "(" + m + ")"
	})

	text = labValueSpacing.ReplaceAllString(text, "$1 $2")

	// Gradients and pressures dictated without a unit get mmHg.
	text = pressurePhrase.ReplaceAllStringFunc(text, func(m string) string {
		sub := pressurePhrase.FindStringSubmatch(m)
		if sub[4] != "" {
			return m
		}
		return fmt.Sprintf("%s %s mmHg", sub[1], sub[3])
	})

	return text
}

func applyExercisePhrasing(text string) string {
	return exercisePhrase.ReplaceAllString(text, "exercised for $1 minutes, $2 METs")
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
}
