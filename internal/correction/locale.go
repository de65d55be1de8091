package correction

import "regexp"

// localePair is one regional-spelling substitution, applied whole-word and
// case-insensitively. The target convention is Australian clinical English.
type localePair struct {
	pattern *regexp.Regexp
	replace string

	// replaceFunc, when set, takes precedence over replace and receives the
	// whole match. Used where the rewrite must preserve the match's casing.
	replaceFunc func(match string) string
}

// localeTable is the fixed substitution table for the locale stage. Every
// replacement is already in target spelling, so the stage is idempotent.
var localeTable = []localePair{
	// Clinical spelling.
	{pattern: regexp.MustCompile(`(?i)\besophag(us|eal|itis)\b`), replace: "oesophag$1"},
	{pattern: regexp.MustCompile(`(?i)\banemia\b`), replace: "anaemia"},
	{pattern: regexp.MustCompile(`(?i)\banemic\b`), replace: "anaemic"},
	{pattern: regexp.MustCompile(`(?i)\bhemoglobin\b`), replace: "haemoglobin"},
	{pattern: regexp.MustCompile(`(?i)\bhematoma\b`), replace: "haematoma"},
	{pattern: regexp.MustCompile(`(?i)\bhemorrhage\b`), replace: "haemorrhage"},
	{pattern: regexp.MustCompile(`(?i)\bhemodynamic(s|ally)?\b`), replace: "haemodynamic$1"},
	{pattern: regexp.MustCompile(`(?i)\bedema\b`), replace: "oedema"},
	{pattern: regexp.MustCompile(`(?i)\bedematous\b`), replace: "oedematous"},
	{pattern: regexp.MustCompile(`(?i)\bdiarrhea\b`), replace: "diarrhoea"},
	{pattern: regexp.MustCompile(`(?i)\bdyspnea\b`), replace: "dyspnoea"},
	{pattern: regexp.MustCompile(`(?i)\borthopnea\b`), replace: "orthopnoea"},
	{pattern: regexp.MustCompile(`(?i)\bpediatric\b`), replace: "paediatric"},
	{pattern: regexp.MustCompile(`(?i)\bischemi(a|c)\b`), replace: "ischaemi$1"},
	{pattern: regexp.MustCompile(`(?i)\betiology\b`), replace: "aetiology"},
	{pattern: regexp.MustCompile(`(?i)\bfurosemide\b`), replace: "frusemide"},
	// Common non-medical variants.
	{pattern: regexp.MustCompile(`(?i)\brecogni(ze|zed|zing)\b`), replaceFunc: zeSuffixRewrite("recogni")},
	{pattern: regexp.MustCompile(`(?i)\bcenter\b`), replace: "centre"},
	{pattern: regexp.MustCompile(`(?i)\bfavorable\b`), replace: "favourable"},
	{pattern: regexp.MustCompile(`(?i)\bcolor\b`), replace: "colour"},
	{pattern: regexp.MustCompile(`(?i)\bhospitalized\b`), replace: "hospitalised"},
	{pattern: regexp.MustCompile(`(?i)\bcharacterized\b`), replace: "characterised"},
	{pattern: regexp.MustCompile(`(?i)\bnormalized\b`), replace: "normalised"},
}

// localeZReplacer maps -ze/-zed/-zing suffixes to their -se forms in the
// casings a dictation transcript can plausibly carry.
var localeZReplacer = map[string]string{
	"ze": "se", "zed": "sed", "zing": "sing",
	"Ze": "Se", "Zed": "Sed", "Zing": "Sing",
	"ZE": "SE", "ZED": "SED", "ZING": "SING",
}

// zeSuffixRewrite builds a replaceFunc that rewrites the -ze/-zed/-zing
// suffix after stem to its -se form, leaving the stem's casing untouched.
func zeSuffixRewrite(stem string) func(string) string {
	return func(match string) string {
		suffix := match[len(stem):]
		if s, ok := localeZReplacer[suffix]; ok {
			return match[:len(stem)] + s
		}
		return match
	}
}

// ApplyLocaleNormalization rewrites regional spelling variants to the
// Australian clinical convention. It is a pure substitution table: text
// already in target spelling passes through unchanged.
func ApplyLocaleNormalization(text string) string {
	out, _ := applyLocale(text)
	return out
}

// applyLocale performs the substitutions and reports the replacement count.
func applyLocale(text string) (string, int) {
	matches := 0
	for _, p := range localeTable {
		found := p.pattern.FindAllStringIndex(text, -1)
		if len(found) == 0 {
			continue
		}
		matches += len(found)
		if p.replaceFunc != nil {
			text = p.pattern.ReplaceAllStringFunc(text, p.replaceFunc)
			continue
		}
		text = p.pattern.ReplaceAllString(text, p.replace)
	}
	return text, matches
}
