// Package normalize provides canonical forms for person-query fields.
//
// Canonical forms keep matching and fingerprinting deterministic across
// heterogeneous free-text sources: the same person entered with different
// casing, punctuation, or city spelling ("St. Louis" vs "Saint Louis") must
// produce identical keys.
//
// Key functions:
//   - Name: canonical person-name token
//   - City / CityVariants: canonical city token with saint/st unification
//   - State: 2-letter USPS code
//   - Keywords: comma-separated keyword list cleanup
//   - SearchKey: deterministic 16-hex-char query identity
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Name normalizes a person-name component: lowercase, trimmed, whitespace
// collapsed, punctuation removed except internal hyphens, Unicode NFC so
// diacritics compare consistently.
//
// Examples:
//   - Name("  O'Brien ") → "obrien"
//   - Name("Gonzalez-Irizarry") → "gonzalez-irizarry"
//   - Name("JAMES") → "james"
func Name(s string) string {
	s = norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder

	b.Grow(len(s))

	prevSpace := false

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)

			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}

			prevSpace = true
		case r == '-':
			// Internal hyphens survive (hyphenated surnames)
			if b.Len() > 0 {
				b.WriteRune('-')
			}

			prevSpace = false
		default:
			// Punctuation is dropped entirely (O'Brien → obrien)
		}
	}

	out := strings.TrimRight(b.String(), " -")

	return strings.TrimLeft(out, " -")
}

// City normalizes a city name: lowercase, punctuation stripped, whitespace
// collapsed, and "St."/"St "/"Saint " prefixes unified to the canonical form
// "saint ".
//
// Examples:
//   - City("St. Louis") → "saint louis"
//   - City("Saint Paul") → "saint paul"
//   - City("Hamilton") → "hamilton"
func City(s string) string {
	c := Name(s)
	if c == "" {
		return ""
	}

	if c == "st" || c == "saint" {
		return "saint"
	}

	if after, ok := strings.CutPrefix(c, "st "); ok {
		return "saint " + after
	}

	if strings.HasPrefix(c, "saint ") {
		return c
	}

	return c
}

// CityVariants returns the matching forms of a city: the canonical "saint X"
// form plus the abbreviated "st X" form when the saint prefix is present.
// For cities without the prefix a single-element slice is returned.
func CityVariants(s string) []string {
	c := City(s)
	if c == "" {
		return nil
	}

	if after, ok := strings.CutPrefix(c, "saint "); ok {
		return []string{c, "st " + after}
	}

	return []string{c}
}

// Keywords splits comma-separated keyword input, lowercases and trims each
// entry, and drops empties. Returns nil when nothing remains so callers can
// treat the keyword criterion as absent.
func Keywords(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		kw := strings.ToLower(strings.TrimSpace(p))
		if kw != "" {
			out = append(out, kw)
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}
