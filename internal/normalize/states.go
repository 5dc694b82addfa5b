package normalize

import "strings"

// stateCodes maps lowercase full U.S. state names (plus DC and territories)
// to their 2-letter USPS codes.
var stateCodes = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"puerto rico":          "PR",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

// validCodes is the reverse index for USPS code validation.
var validCodes = buildValidCodes()

func buildValidCodes() map[string]bool {
	m := make(map[string]bool, len(stateCodes))
	for _, code := range stateCodes {
		m[code] = true
	}

	return m
}

// State normalizes a U.S. state to its 2-letter USPS code.
//
// Rules:
//   - full state name (case-insensitive) → USPS code ("Ohio" → "OH")
//   - already a 2-letter code → uppercased passthrough ("oh" → "OH")
//   - unknown input → uppercased passthrough (caller validates if needed)
//
// Examples:
//   - State("ohio") → "OH"
//   - State("New York") → "NY"
//   - State("zz") → "ZZ"
func State(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(strings.Join(strings.Fields(trimmed), " "))
	if code, ok := stateCodes[lower]; ok {
		return code
	}

	return strings.ToUpper(trimmed)
}

// IsStateCode reports whether the input is a valid 2-letter USPS state code
// after normalization.
func IsStateCode(s string) bool {
	return validCodes[State(s)]
}

// StateFromName maps a full state name to its USPS code, returning ok=false
// when the name is not a known state. Unlike State, this does not pass
// unknown input through.
func StateFromName(name string) (string, bool) {
	lower := strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(name)), " "))
	code, ok := stateCodes[lower]

	return code, ok
}
