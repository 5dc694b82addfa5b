package extract

import (
	"regexp"
	"strconv"
)

const (
	maxAge = 120

	// commaAgeFloor bounds the bare ", NN," form, which is too ambiguous
	// below adulthood (dates, street numbers, counts).
	commaAgeFloor = 18
)

var (
	agedRe     = regexp.MustCompile(`(?i)\bage[d]?\s+(\d{1,3})\b`)
	yearsOldRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s+years?\s+old\b`)
	commaAgeRe = regexp.MustCompile(`,\s*(\d{1,3}),`)
)

// Age scans text for an age in years. Returns 0 when no plausible age is
// found. The explicit forms ("age 71", "71 years old") accept 0–120; the
// bare comma form ("Smith, 71,") is restricted to 18–120.
func Age(text string) int {
	if m := agedRe.FindStringSubmatch(text); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age <= maxAge {
			return age
		}
	}

	if m := yearsOldRe.FindStringSubmatch(text); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age <= maxAge {
			return age
		}
	}

	if m := commaAgeRe.FindStringSubmatch(text); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age >= commaAgeFloor && age <= maxAge {
			return age
		}
	}

	return 0
}
