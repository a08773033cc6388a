package similarity

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// defaultAffixes are club-name tokens that carry no identity signal and are
// stripped from either end of a normalized name ("FC Barcelona" and
// "Barcelona" must compare equal).
var defaultAffixes = map[string]struct{}{
	"fc": {}, "cf": {}, "afc": {}, "cfc": {},
	"ac": {}, "as": {}, "ss": {}, "ssc": {},
	"sc": {}, "sv": {}, "sd": {}, "cd": {}, "ud": {},
	"fk": {}, "bk": {}, "sk": {}, "if": {},
	"club": {}, "de": {}, "1": {},
}

// Normalize produces the canonical comparable form of a raw team name.
// It is deterministic, total and idempotent; empty input yields "".
//
// Steps: transliterate diacritics, lower-case, collapse punctuation to
// spaces, strip affix tokens from both ends, re-join on single spaces.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	ascii := strings.ToLower(unidecode.Unidecode(raw))

	var b strings.Builder
	b.Grow(len(ascii))
	lastSpace := true
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	tokens := strings.Fields(b.String())
	stripped := stripAffixes(tokens)
	if len(stripped) == 0 {
		// Names made entirely of affix tokens keep their tokens rather
		// than normalizing to nothing.
		stripped = tokens
	}

	return strings.Join(stripped, " ")
}

func stripAffixes(tokens []string) []string {
	start, end := 0, len(tokens)
	for start < end {
		if _, ok := defaultAffixes[tokens[start]]; !ok {
			break
		}
		start++
	}
	for end > start {
		if _, ok := defaultAffixes[tokens[end-1]]; !ok {
			break
		}
		end--
	}
	return tokens[start:end]
}

// Tokens splits an already-normalized name into its words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Initials builds the acronym of a multi-word normalized name
// ("manchester united" -> "mu"). Single-word names yield "".
func Initials(normalized string) string {
	tokens := Tokens(normalized)
	if len(tokens) < 2 {
		return ""
	}

	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte(tok[0])
	}
	return b.String()
}

// IsAffix reports whether a token is in the affix set; the acronym
// strategy uses it to ignore trailing club suffixes inside abbreviations.
func IsAffix(token string) bool {
	_, ok := defaultAffixes[token]
	return ok
}
