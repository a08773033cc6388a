package similarity

import "testing"

func TestCompareSymmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"barcelona", "barcelona b"},
		{"bayern munchen", "bayern munich"},
		{"manchester united", "mufc"},
		{"liverpool", "everton"},
		{"", "arsenal"},
	}
	for _, p := range pairs {
		ab := Compare(p[0], p[1])
		ba := Compare(p[1], p[0])
		if ab.Value != ba.Value {
			t.Fatalf("Compare(%q,%q)=%.4f but reversed=%.4f", p[0], p[1], ab.Value, ba.Value)
		}
	}
}

func TestCompareSelfSimilarity(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"barcelona", "bayern munchen", "x"} {
		got := Compare(name, name)
		if got.Value != 1.0 {
			t.Fatalf("Compare(%q,%q)=%.4f, want 1.0", name, name, got.Value)
		}
		if got.Method != MethodExact {
			t.Fatalf("self comparison method=%s, want exact", got.Method)
		}
	}
}

func TestCompareEmptyStrings(t *testing.T) {
	t.Parallel()

	if got := Compare("", ""); got.Value != 0 || got.Method != MethodNone {
		t.Fatalf("two empty strings scored %.4f (%s), want 0 none", got.Value, got.Method)
	}
	if got := Compare("", "arsenal"); got.Value != 0 {
		t.Fatalf("empty vs name scored %.4f, want 0", got.Value)
	}
}

func TestCompareKnownPairs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		// Same club after affix stripping.
		{a: Normalize("FC Barcelona"), b: Normalize("Barcelona"), min: 0.95, max: 1.0},
		// Spelling variant across languages.
		{a: Normalize("Bayern München"), b: Normalize("Bayern Munich"), min: 0.90, max: 1.0},
		// Different clubs must stay below the reject threshold.
		{a: Normalize("Manchester United"), b: Normalize("Liverpool"), min: 0.0, max: 0.69},
	}

	for _, tc := range cases {
		got := Compare(tc.a, tc.b)
		if got.Value < tc.min || got.Value > tc.max {
			t.Fatalf("Compare(%q,%q)=%.4f (%s), want in [%.2f,%.2f]",
				tc.a, tc.b, got.Value, got.Method, tc.min, tc.max)
		}
	}
}

func TestCompareAcronym(t *testing.T) {
	t.Parallel()

	got := Compare("manchester united", "mufc")
	if got.Method != MethodAcronym {
		t.Fatalf("method=%s, want acronym", got.Method)
	}
	if got.Value != acronymConfidence {
		t.Fatalf("value=%.4f, want %.2f", got.Value, acronymConfidence)
	}
}

func TestTokenOverlapWeighting(t *testing.T) {
	t.Parallel()

	// Sharing only a significant token scores well above sharing only a
	// short filler token.
	significant := tokenOverlap("united city", "united town")
	filler := tokenOverlap("ab city", "ab town")
	if significant <= filler {
		t.Fatalf("significant overlap %.4f should beat filler overlap %.4f", significant, filler)
	}
}
