package similarity

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips club prefix", in: "FC Barcelona", want: "barcelona"},
		{name: "strips numeric prefix and club token", in: "1. FC Köln", want: "koln"},
		{name: "transliterates diacritics", in: "Bayern München", want: "bayern munchen"},
		{name: "transliterates sao", in: "São Paulo", want: "sao paulo"},
		{name: "collapses punctuation", in: "St.  Pauli!!", want: "st pauli"},
		{name: "keeps inner affix tokens", in: "Club Atlético de Madrid", want: "atletico de madrid"},
		{name: "lowercases", in: "LIVERPOOL", want: "liverpool"},
		{name: "empty input", in: "", want: ""},
		{name: "whitespace only", in: "   ", want: ""},
		{name: "all-affix name keeps tokens", in: "FC", want: "fc"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Normalize(tc.in)
			if got != tc.want {
				t.Fatalf("Normalize(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"FC Barcelona", "1. FC Köln", "Bayern München", "São Paulo FC",
		"Manchester United", "", "FC", "Újpest FC", "Görtz 04 e.V.",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestInitials(t *testing.T) {
	t.Parallel()

	if got := Initials("manchester united"); got != "mu" {
		t.Fatalf("Initials=%q, want mu", got)
	}
	if got := Initials("liverpool"); got != "" {
		t.Fatalf("single-word Initials=%q, want empty", got)
	}
}
