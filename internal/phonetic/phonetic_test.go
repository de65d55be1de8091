package phonetic_test

import (
	"testing"

	"github.com/cliniscribe/cliniscribe/internal/phonetic"
)

func TestMatcher_MishearMatchesGlossaryTerm(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	// "enter resto" is how Entresto tends to come out of the recogniser.
	terms := []string{"Entresto", "Brilinta", "Perhexiline"}

	corrected, conf, matched := m.Match("enter resto", terms)
	if !matched {
		t.Fatalf("Match(%q, terms): matched=false, want true", "enter resto")
	}
	if corrected != "Entresto" {
		t.Errorf("Match(%q): corrected=%q, want %q", "enter resto", corrected, "Entresto")
	}
	if conf < 0.7 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.7", "enter resto", conf)
	}
}

func TestMatcher_MultiWordTerm(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"sacubitril valsartan", "Entresto"}

	corrected, _, matched := m.Match("sacubitril valsarten", terms)
	if !matched {
		t.Fatalf("Match(%q, terms): matched=false, want true", "sacubitril valsarten")
	}
	if corrected != "sacubitril valsartan" {
		t.Errorf("Match(%q): corrected=%q, want %q", "sacubitril valsarten", corrected, "sacubitril valsartan")
	}
}

func TestMatcher_UnrelatedWordDoesNotMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Entresto", "Brilinta"}

	corrected, conf, matched := m.Match("hello", terms)
	if matched {
		t.Fatalf("Match(%q, terms): matched=true, want false", "hello")
	}
	if corrected != "hello" || conf != 0 {
		t.Errorf("Match(%q) = (%q, %f), want unchanged word and 0 confidence", "hello", corrected, conf)
	}
}

func TestMatcher_ShortTokensRejected(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Entresto"}

	for _, word := range []string{"mg", "LV", "EF"} {
		if _, _, matched := m.Match(word, terms); matched {
			t.Errorf("Match(%q): matched=true, want false for short token", word)
		}
	}
}

func TestMatcher_ExactTermLeftAlone(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"entresto"}

	if _, _, matched := m.Match("Entresto", terms); matched {
		t.Error("Match on an already-correct term matched=true, want false")
	}
}

func TestMatcher_ThresholdOptions(t *testing.T) {
	t.Parallel()

	// With an impossible threshold nothing should match.
	m := phonetic.New(phonetic.WithPhoneticThreshold(1.01), phonetic.WithFuzzyThreshold(1.01))
	terms := []string{"Entresto"}

	if _, _, matched := m.Match("enter resto", terms); matched {
		t.Error("Match with threshold > 1 matched=true, want false")
	}
}
