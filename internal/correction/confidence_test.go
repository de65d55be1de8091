package correction

import "testing"

func TestScoreConfidenceUnchangedText(t *testing.T) {
	t.Parallel()

	if got := scoreConfidence("clean text", "clean text", 0); got != 1.0 {
		t.Errorf("scoreConfidence(unchanged) = %v, want 1.0", got)
	}
}

func TestScoreConfidenceBounds(t *testing.T) {
	t.Parallel()

	// Every fuzzed-shape input must land in [0.6, 1.0].
	cases := []struct {
		in, out string
		matches int
	}{
		{"a", "b", 1},
		{"a b c", "x y z", 3},
		{"one two three four", "one two three fix", 1},
		{"", "something", 5},
		{"word", "word changed", 100},
	}
	for _, c := range cases {
		got := scoreConfidence(c.in, c.out, c.matches)
		if got < confidenceFloor || got > 1.0 {
			t.Errorf("scoreConfidence(%q, %q, %d) = %v, want in [%v, 1.0]",
				c.in, c.out, c.matches, got, confidenceFloor)
		}
	}
}

func TestScoreConfidenceFallsWithEditDensity(t *testing.T) {
	t.Parallel()

	light := scoreConfidence("one two three four five six seven eight", "one two three four five six seven fix", 1)
	heavy := scoreConfidence("one two three four", "a b c fix", 4)
	if heavy >= light {
		t.Errorf("heavy edits scored %v, light edits %v; want heavy < light", heavy, light)
	}
}

func TestScoreConfidenceHeavyEditsHitFloor(t *testing.T) {
	t.Parallel()

	// Ten matches over two words crushes the baseline to the floor; no
	// medical vocabulary is introduced so no boost applies.
	if got := scoreConfidence("alpha beta", "gamma delta", 10); got != confidenceFloor {
		t.Errorf("scoreConfidence(dense edits) = %v, want floor %v", got, confidenceFloor)
	}
}

func TestScoreConfidenceMedicalTermBoost(t *testing.T) {
	t.Parallel()

	plain := scoreConfidence("take one tablet daily", "take two tablets daily", 1)
	boosted := scoreConfidence("on metro prolol daily", "on metoprolol daily", 1)
	if boosted <= plain {
		t.Errorf("introducing a medical term scored %v, plain edit %v; want boost", boosted, plain)
	}
}

func TestIntroducesMedicalTerm(t *testing.T) {
	t.Parallel()

	if !introducesMedicalTerm("metro prolol", "metoprolol") {
		t.Error("introducesMedicalTerm(metoprolol introduced) = false, want true")
	}
	if introducesMedicalTerm("metoprolol 25mg", "metoprolol 50mg") {
		t.Error("introducesMedicalTerm(term already present) = true, want false")
	}
	if introducesMedicalTerm("take daily", "take twice daily") {
		t.Error("introducesMedicalTerm(no medical term) = true, want false")
	}
}
