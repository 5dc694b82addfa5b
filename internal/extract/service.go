package extract

import (
	"regexp"
	"strconv"
	"time"
)

// ServiceDates holds the extracted visitation and funeral dates in ISO form.
// Either field may be empty when the text announces only one service.
type ServiceDates struct {
	Visitation string
	Funeral    string
}

var (
	// visitationRe matches the keyword group announcing a visitation.
	visitationRe = regexp.MustCompile(`(?i)\b(visitation|viewing|calling hours|friends may call|wake)\b`)

	// funeralRe matches the keyword group announcing the funeral itself.
	funeralRe = regexp.MustCompile(`(?i)\b(funeral(?: services?| mass)?|memorial service|celebration of life|graveside(?: services?)?|burial|interment)\b`)
)

// serviceWindow is how far past a service keyword the date may appear.
// Covers "visitation will be held from 4 to 7 p.m. on Thursday, January 3".
const serviceWindow = 110

// Services scans text for visitation and funeral announcements and returns
// their dates. dod (ISO date or "") drives year inference for announcements
// that omit the year: the service lands in the DOD's year unless its
// month/day precedes the DOD's month/day, in which case it rolls into the
// next year (year-end cusp).
func Services(text, dod string) ServiceDates {
	return ServiceDates{
		Visitation: serviceDate(text, visitationRe, dod),
		Funeral:    serviceDate(text, funeralRe, dod),
	}
}

// serviceDate finds the first keyword match followed by a date within
// serviceWindow characters.
func serviceDate(text string, keyword *regexp.Regexp, dod string) string {
	for _, loc := range keyword.FindAllStringIndex(text, -1) {
		end := loc[1] + serviceWindow
		if end > len(text) {
			end = len(text)
		}

		window := text[loc[1]:end]

		// Full date with year takes precedence.
		if m := longDateRe.FindStringSubmatch(window); m != nil {
			if date := parseLongDateMatch(m); date != "" {
				return date
			}
		}

		if m := numericDateRe.FindStringSubmatch(window); m != nil {
			if date := parseNumericDateMatch(m); date != "" {
				return date
			}
		}

		// Month + day without year: infer the year from the DOD.
		if m := monthDayRe.FindStringSubmatch(window); m != nil {
			month := MonthNumber(m[1])

			day, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}

			if date := inferYear(month, day, dod); date != "" {
				return date
			}
		}
	}

	return ""
}

// inferYear places a year-less service date relative to the DOD.
//
// The service lands in the DOD's year, advancing to the next year iff the
// service's (month, day) is strictly less than the DOD's (month, day) —
// a death in late December with services in early January crosses the year
// boundary. A service on the DOD's own day keeps the DOD's year.
//
// Returns "" when the DOD is absent or unparseable (no basis for inference).
func inferYear(month, day int, dod string) string {
	if dod == "" {
		return ""
	}

	d, err := time.Parse("2006-01-02", dod)
	if err != nil {
		return ""
	}

	year := d.Year()
	if month < int(d.Month()) || (month == int(d.Month()) && day < d.Day()) {
		year++
	}

	return isoDate(year, month, day)
}
