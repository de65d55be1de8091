package correction

import (
	"fmt"
	"strings"

	"github.com/cliniscribe/cliniscribe/internal/catalog"
	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
)

// Config selects which stages and rule sets one correction call applies.
// It is an immutable value object per call; the pipeline never mutates it.
type Config struct {
	// Categories lists the static catalog categories to apply, in the given
	// order. Empty means all categories in [catalog.CategoryOrder] order.
	Categories []catalog.Category

	// EnableDynamic applies the externally managed rules from the dynamic
	// rule cache.
	EnableDynamic bool

	// CustomRules are ad hoc rules for this call only. They pass through the
	// safety validator; rejected rules are skipped and logged, never applied.
	CustomRules []safety.Rule

	// MedicalDomain applies the domain rule set previously registered under
	// this name, after custom rules so domain corpora can override them.
	MedicalDomain string

	// EnableLocale applies the regional-spelling normalization table.
	EnableLocale bool

	// EnableSemantic invokes the external semantic-analysis collaborators.
	EnableSemantic bool
}

// categoriesOrAll resolves the effective category list.
func (c Config) categoriesOrAll() []catalog.Category {
	if len(c.Categories) == 0 {
		return catalog.CategoryOrder
	}
	return c.Categories
}

// Fingerprint returns a canonical serialization of the config, used in the
// result-cache key. Two configs with the same fingerprint must produce the
// same output for the same input.
func (c Config) Fingerprint() string {
	var sb strings.Builder

	sb.WriteString("cat=")
	for i, cat := range c.categoriesOrAll() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(cat))
	}

	fmt.Fprintf(&sb, ";dyn=%t;locale=%t;sem=%t;domain=%s",
		c.EnableDynamic, c.EnableLocale, c.EnableSemantic, c.MedicalDomain)

	sb.WriteString(";custom=")
	for i, r := range c.CustomRules {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.Raw)
		sb.WriteByte('\x1f')
		sb.WriteString(r.Fix)
	}

	return sb.String()
}
