package extract

import (
	"regexp"
	"strconv"
)

// deathPhraseRe matches the large synonym set obituary writers use for
// "died". The phrase anchors priority-1 extraction: a date that follows one
// of these within a short window is almost certainly the date of death.
var deathPhraseRe = regexp.MustCompile(`(?i)\b(passed away|passed on|passed peacefully|passed suddenly|passed from this life|went to be with the lord|went home to be with the lord|went to (?:his|her|their) heavenly home|called home|entered (?:into )?(?:eternal )?rest|departed this life|transitioned|gained (?:his|her|their) (?:angel )?wings|lost (?:his|her|their) (?:courageous )?battle|entered eternal life|was called to (?:his|her|their) eternal home|left this world|died)\b`)

// obituaryContextRe marks text as obituary-flavored, which is enough to
// accept a standalone date at priority 5.
var obituaryContextRe = regexp.MustCompile(`(?i)\b(obituary|obituaries|death|died|passed|memorial|funeral|visitation|service|survived by|preceded in death|loving memory)\b`)

var (
	// longRangeRe matches "Month D, YYYY – Month D, YYYY" (birth – death).
	longRangeRe = regexp.MustCompile(`(?i)` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\s*[-–—]\s*` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)

	// numericRangeRe matches "MM/DD/YYYY – MM/DD/YYYY".
	numericRangeRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\s*[-–—]\s*(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)

	// yearRangeRe matches bare "YYYY – YYYY" life spans.
	yearRangeRe = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\s*[-–—]\s*(19\d{2}|20\d{2})\b`)

	// recentLongDateRe is the last-resort pattern: any "Month D, 202X".
	recentLongDateRe = regexp.MustCompile(`(?i)` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(202\d)`)
)

// deathPhraseWindow is how far past a death phrase the date may appear.
// Covers constructions like "passed away peacefully at home on Monday,".
const deathPhraseWindow = 80

// DateOfDeath scans a body of text (title + snippet, or full page text) for
// the date of death and returns it as YYYY-MM-DD, or "" when no acceptable
// date is found.
//
// Patterns are tried in priority order:
//  1. death phrase followed by a date within a short window
//  2. birth–death long-date range (second date wins)
//  3. birth–death numeric range (second date wins)
//  4. year-only range "YYYY – YYYY" → "YYYY-01-01"
//  5. obituary context plus a standalone date
//  6. last resort: the final "Month D, 202X" occurrence
//
// Dates beyond tomorrow are rejected at every priority. Two-digit years
// expand with pivot 50.
func DateOfDeath(text string) string {
	if text == "" {
		return ""
	}

	if dod := deathPhraseDate(text); dod != "" {
		return dod
	}

	if m := longRangeRe.FindStringSubmatch(text); m != nil {
		if dod := parseLongDateMatch([]string{m[0], m[4], m[5], m[6]}); notFuture(dod) {
			return dod
		}
	}

	if m := numericRangeRe.FindStringSubmatch(text); m != nil {
		if dod := parseNumericDateMatch([]string{m[0], m[4], m[5], m[6]}); notFuture(dod) {
			return dod
		}
	}

	if m := yearRangeRe.FindStringSubmatch(text); m != nil {
		if year, err := strconv.Atoi(m[2]); err == nil {
			if dod := isoDate(year, 1, 1); notFuture(dod) {
				return dod
			}
		}
	}

	if obituaryContextRe.MatchString(text) {
		if dod := firstDateIn(text); notFuture(dod) {
			return dod
		}
	}

	// Last resort: take the final recent long date anywhere in the text.
	// Obituary pages tend to close with the death announcement.
	if all := recentLongDateRe.FindAllStringSubmatch(text, -1); len(all) > 0 {
		m := all[len(all)-1]
		if dod := parseLongDateMatch([]string{m[0], m[1], m[2], m[3]}); notFuture(dod) {
			return dod
		}
	}

	return ""
}

// deathPhraseDate implements priority 1: a death phrase with a date within
// deathPhraseWindow characters after it.
func deathPhraseDate(text string) string {
	for _, loc := range deathPhraseRe.FindAllStringIndex(text, -1) {
		end := loc[1] + deathPhraseWindow
		if end > len(text) {
			end = len(text)
		}

		if dod := firstDateIn(text[loc[1]:end]); notFuture(dod) {
			return dod
		}
	}

	return ""
}
