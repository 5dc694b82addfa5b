package extract

import (
	"regexp"
	"strings"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
)

// Location is an extracted city/state pair. State is always a validated
// 2-letter USPS code.
type Location struct {
	City  string
	State string
}

// locationRe matches "of <City>, <ST>" or "in <City>, <StateName>" with a
// city of one to three capitalized words.
var locationRe = regexp.MustCompile(`\b(?:of|in|Of|In)\s+([A-Z][\w.']*(?:\s+[A-Z][\w.']*){0,2}),\s*([A-Za-z]{2}\b|[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

// CityState scans text for a residence mention and returns the city and
// 2-letter state. Matches whose state component is not a real USPS code (or
// a full state name mapping to one) are skipped, which filters non-location
// phrases like "of course, the".
func CityState(text string) Location {
	for _, m := range locationRe.FindAllStringSubmatch(text, -1) {
		city := strings.TrimSpace(m[1])
		stateRaw := strings.TrimSpace(m[2])

		var state string

		if len(stateRaw) == 2 {
			if !normalize.IsStateCode(stateRaw) {
				continue
			}

			state = normalize.State(stateRaw)
		} else {
			code, ok := normalize.StateFromName(stateRaw)
			if !ok {
				continue
			}

			state = code
		}

		return Location{City: city, State: state}
	}

	return Location{}
}
