// Package extract pulls structured candidate fields out of free-text obituary
// sources: titles, snippets, URL slugs, and full page text.
//
// Every extractor returns its zero value ("", 0) when nothing was found;
// extractors never panic on malformed input. Sources are messy by nature, so
// the extractors favor precision-ordered pattern lists over single catch-all
// regexes.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// twoDigitYearPivot expands 2-digit years: <=50 becomes 20YY, >50 becomes 19YY.
const twoDigitYearPivot = 50

// monthNumbers maps lowercase month names and abbreviations to month numbers.
var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

// monthPattern matches a month name or abbreviation with optional period.
const monthPattern = `(January|February|March|April|May|June|July|August|Sept?ember|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept?|Oct|Nov|Dec)\.?`

var (
	// longDateRe matches "Month D, YYYY" with optional ordinal suffix.
	longDateRe = regexp.MustCompile(`(?i)` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)

	// numericDateRe matches "MM/DD/YYYY" or "MM/DD/YY".
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)

	// monthDayRe matches "Month D" with no year (service announcements).
	monthDayRe = regexp.MustCompile(`(?i)` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// MonthNumber returns the month number for a month name or abbreviation
// (case-insensitive, optional trailing period), or 0 if unknown.
func MonthNumber(name string) int {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))

	return monthNumbers[key]
}

// expandYear normalizes 2-digit years with a pivot of 50.
func expandYear(year int) int {
	if year >= 100 {
		return year
	}

	if year <= twoDigitYearPivot {
		return 2000 + year
	}

	return 1900 + year
}

// isoDate renders a calendar date as YYYY-MM-DD, returning "" when the
// components do not form a real date (Feb 30, month 13, ...).
func isoDate(year, month, day int) string {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 {
		return ""
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "" // time.Date normalized an impossible date
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// notFuture rejects dates beyond tomorrow. Obituaries describe the past; a
// parsed future date is a misread (birthdays, anniversaries, event promos).
func notFuture(iso string) bool {
	if iso == "" {
		return false
	}

	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return false
	}

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)

	return !t.After(time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 23, 59, 59, 0, time.UTC))
}

// parseLongDateMatch converts a longDateRe submatch to ISO form.
func parseLongDateMatch(m []string) string {
	month := MonthNumber(m[1])

	day, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}

	year, err := strconv.Atoi(m[3])
	if err != nil {
		return ""
	}

	return isoDate(year, month, day)
}

// parseNumericDateMatch converts a numericDateRe submatch to ISO form,
// expanding 2-digit years.
func parseNumericDateMatch(m []string) string {
	month, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}

	day, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}

	year, err := strconv.Atoi(m[3])
	if err != nil {
		return ""
	}

	return isoDate(expandYear(year), month, day)
}

// firstDateIn returns the first long or numeric date in text, in ISO form.
// Long dates win when both styles appear because they carry less ambiguity.
func firstDateIn(text string) string {
	longIdx := longDateRe.FindStringSubmatchIndex(text)
	numIdx := numericDateRe.FindStringSubmatchIndex(text)

	switch {
	case longIdx != nil && (numIdx == nil || longIdx[0] <= numIdx[0]):
		return parseLongDateMatch(matchStrings(text, longIdx, 3))
	case numIdx != nil:
		return parseNumericDateMatch(matchStrings(text, numIdx, 3))
	default:
		return ""
	}
}

// matchStrings materializes submatch strings from FindStringSubmatchIndex
// output: element 0 is the full match, 1..n are capture groups.
func matchStrings(text string, idx []int, groups int) []string {
	out := make([]string, groups+1)

	for g := 0; g <= groups; g++ {
		start, end := idx[2*g], idx[2*g+1]
		if start >= 0 {
			out[g] = text[start:end]
		}
	}

	return out
}
