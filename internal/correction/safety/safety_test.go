package safety_test

import (
	"strings"
	"testing"

	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
)

func TestValidateRule(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", safety.MaxRuleLength+1)

	tests := []struct {
		name       string
		rule       safety.Rule
		wantValid  bool
		wantReason string
	}{
		{
			name:      "plausible misheard drug",
			rule:      safety.Rule{Raw: "worfarin", Fix: "warfarin"},
			wantValid: true,
		},
		{
			name:       "empty raw",
			rule:       safety.Rule{Raw: "", Fix: "warfarin"},
			wantReason: "raw text cannot be empty",
		},
		{
			name:       "whitespace raw",
			rule:       safety.Rule{Raw: "   ", Fix: "warfarin"},
			wantReason: "raw text cannot be empty",
		},
		{
			name:       "empty fix",
			rule:       safety.Rule{Raw: "worfarin", Fix: ""},
			wantReason: "fix text cannot be empty",
		},
		{
			name:       "identical",
			rule:       safety.Rule{Raw: "warfarin", Fix: "warfarin"},
			wantReason: "cannot be identical",
		},
		{
			name:       "case-only change of ordinary term",
			rule:       safety.Rule{Raw: "warfarin", Fix: "Warfarin"},
			wantReason: "cannot be identical (case-insensitive)",
		},
		{
			name:      "case-only change of critical term",
			rule:      safety.Rule{Raw: "severe", Fix: "SEVERE"},
			wantValid: true,
		},
		{
			name:       "severity downgrade",
			rule:       safety.Rule{Raw: "severe", Fix: "mild"},
			wantReason: "safety-critical",
		},
		{
			name:       "dose unit rewrite",
			rule:       safety.Rule{Raw: "mg", Fix: "mcg"},
			wantReason: "safety-critical",
		},
		{
			name:       "valve rename",
			rule:       safety.Rule{Raw: "mitral", Fix: "tricuspid"},
			wantReason: "safety-critical",
		},
		{
			name:       "overlong raw",
			rule:       safety.Rule{Raw: long, Fix: "ok"},
			wantReason: "exceeds",
		},
		{
			name:       "overlong fix",
			rule:       safety.Rule{Raw: "ok", Fix: long},
			wantReason: "exceeds",
		},
		{
			name:       "nested unbounded quantifiers",
			rule:       safety.Rule{Raw: `(a+)+b`, Fix: "ab"},
			wantReason: "nested unbounded quantifiers",
		},
		{
			name:       "lookahead",
			rule:       safety.Rule{Raw: `foo(?=bar)`, Fix: "foo"},
			wantReason: "lookaround",
		},
		{
			name:       "excessive bounded repetition",
			rule:       safety.Rule{Raw: `a{500,}`, Fix: "a"},
			wantReason: "excessive bounded repetition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := safety.ValidateRule(tt.rule)
			if v.Valid != tt.wantValid {
				t.Fatalf("ValidateRule(%+v).Valid = %t, want %t (reason %q)",
					tt.rule, v.Valid, tt.wantValid, v.Reason)
			}
			if !tt.wantValid && !strings.Contains(v.Reason, tt.wantReason) {
				t.Errorf("reason = %q, want it to contain %q", v.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateRuleCriticalRejectionSuggests(t *testing.T) {
	t.Parallel()

	v := safety.ValidateRule(safety.Rule{Raw: "severe", Fix: "mild"})
	if v.Valid {
		t.Fatal("ValidateRule(severe->mild).Valid = true, want false")
	}
	if len(v.Suggestions) == 0 {
		t.Error("critical-term rejection carries no suggestions")
	}
}

func TestPartitionPreservesOrder(t *testing.T) {
	t.Parallel()

	rules := []safety.Rule{
		{Raw: "worfarin", Fix: "warfarin"},
		{Raw: "", Fix: "bad"},
		{Raw: "kandesartan", Fix: "candesartan"},
		{Raw: "severe", Fix: "mild"},
	}
	p := safety.Partition(rules)

	if len(p.Valid) != 2 || len(p.Invalid) != 2 {
		t.Fatalf("Partition() = %d valid, %d invalid, want 2 and 2", len(p.Valid), len(p.Invalid))
	}
	if p.Valid[0].Raw != "worfarin" || p.Valid[1].Raw != "kandesartan" {
		t.Errorf("valid order = %q, %q; want input order preserved", p.Valid[0].Raw, p.Valid[1].Raw)
	}
	if p.Invalid[0].Rule.Raw != "" || p.Invalid[1].Rule.Raw != "severe" {
		t.Errorf("invalid order not preserved: %+v", p.Invalid)
	}
}
