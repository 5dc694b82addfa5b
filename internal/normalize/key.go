package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// searchKeyLength is the number of hex characters in a search key.
// Must match database schema: user_query.search_key CHAR(16).
const searchKeyLength = 16

// SearchKey generates the deterministic identity of a normalized person
// query.
//
// Formula: first 16 hex chars of SHA-256 over
// "lastNorm|firstNorm|cityNorm|stateNorm|age", all lowercased and
// pipe-joined. Age 0 means "not provided" and renders as the empty string.
//
// Identical queries yield identical search keys regardless of surface casing:
//
//	SearchKey("Smith", "James", "Hamilton", "OH", 71) ==
//	SearchKey("smith", "JAMES", "hamilton", "oh", 71)
//
// The search key is the scope key for per-query exclusions, so it must stay
// stable across runs and releases.
func SearchKey(last, first, city, state string, age int) string {
	ageStr := ""
	if age > 0 {
		ageStr = strconv.Itoa(age)
	}

	input := strings.Join([]string{
		Name(last),
		Name(first),
		City(city),
		strings.ToLower(State(state)),
		ageStr,
	}, "|")

	sum := sha256.Sum256([]byte(input))

	return hex.EncodeToString(sum[:])[:searchKeyLength]
}
