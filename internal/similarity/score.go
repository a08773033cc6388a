package similarity

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Method names the strategy that produced a similarity score.
type Method string

const (
	MethodExact        Method = "exact"
	MethodLevenshtein  Method = "levenshtein"
	MethodJaroWinkler  Method = "jaro_winkler"
	MethodTokenOverlap Method = "token_overlap"
	MethodAcronym      Method = "acronym"
	MethodNone         Method = "none"
)

// Score is a similarity verdict in [0,1] plus the winning strategy.
type Score struct {
	Value  float64
	Method Method
}

// acronymConfidence is what an initials match is worth: strong enough to
// accept, not enough to auto-verify on its own.
const acronymConfidence = 0.90

// shortTokenWeight discounts trivial tokens (<=2 chars) in the overlap
// strategy so "real madrid" vs "real sociedad" does not look half-equal
// on shared filler.
const shortTokenWeight = 0.3

var (
	levenshteinMetric = metrics.NewLevenshtein()
	jaroWinklerMetric = metrics.NewJaroWinkler()
)

// Compare scores two normalized names with every strategy and returns the
// best result. Symmetric; Compare(x, x) is 1.0 for non-empty x; two empty
// strings score 0.0 because no signal exists.
func Compare(a, b string) Score {
	if a == "" || b == "" {
		return Score{Value: 0, Method: MethodNone}
	}
	if a == b {
		return Score{Value: 1, Method: MethodExact}
	}

	best := Score{Value: strutil.Similarity(a, b, levenshteinMetric), Method: MethodLevenshtein}

	if v := strutil.Similarity(a, b, jaroWinklerMetric); v > best.Value {
		best = Score{Value: v, Method: MethodJaroWinkler}
	}
	if v := tokenOverlap(a, b); v > best.Value {
		best = Score{Value: v, Method: MethodTokenOverlap}
	}
	if v := acronymScore(a, b); v > best.Value {
		best = Score{Value: v, Method: MethodAcronym}
	}

	return best
}

// tokenOverlap is a Jaccard ratio over word sets, weighted so significant
// tokens dominate and short filler tokens barely count.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var shared, union float64
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared += tokenWeight(tok)
		}
		union += tokenWeight(tok)
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			union += tokenWeight(tok)
		}
	}
	if union == 0 {
		return 0
	}

	return shared / union
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		out[tok] = struct{}{}
	}
	return out
}

func tokenWeight(tok string) float64 {
	if len(tok) <= 2 {
		return shortTokenWeight
	}
	return 1
}

// acronymScore catches abbreviation pairs like "manchester united" vs
// "mufc": the initials of the multi-word side must equal the other name,
// equal it once club affixes are dropped from its tail, or equal the other
// side's own initials.
func acronymScore(a, b string) float64 {
	if matchesAcronym(a, b) || matchesAcronym(b, a) {
		return acronymConfidence
	}
	return 0
}

func matchesAcronym(multi, other string) bool {
	ini := Initials(multi)
	if len(ini) < 2 {
		return false
	}

	if other == ini {
		return true
	}
	if oi := Initials(other); oi != "" && oi == ini {
		return true
	}
	// "mufc" = initials "mu" + affix "fc".
	if len(other) > len(ini) && other[:len(ini)] == ini && IsAffix(other[len(ini):]) {
		return true
	}

	return false
}
