package search

import "strings"

// DefaultBlockedDomains suppresses government sites, which surface court
// and vital-records pages rather than obituaries.
var DefaultBlockedDomains = []string{".gov"}

// FilterBlockedDomains drops candidates whose URL hostname ends with any of
// the configured suffixes. Candidates with unparseable URLs pass through;
// the block list is a precision filter, not a validator.
func FilterBlockedDomains(candidates []Candidate, suffixes []string) []Candidate {
	if len(suffixes) == 0 {
		return candidates
	}

	kept := make([]Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		host := hostOf(candidate.URL)
		if host != "" && hostBlocked(host, suffixes) {
			continue
		}

		kept = append(kept, candidate)
	}

	return kept
}

func hostBlocked(host string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	return false
}
