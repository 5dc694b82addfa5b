package search

import (
	"sort"
	"time"
)

// DefaultRecencyWindow is how far back a DOD may lie for a candidate to be
// treated as a recent death during ranking.
const DefaultRecencyWindow = 14 * 24 * time.Hour

// Rank orders scored candidates and assigns ranks. Candidates whose DOD
// falls within the recency window (and not in the future) form the recent
// partition; everything else, including missing DODs, forms the other
// partition. Each partition sorts by scoreFinal descending, recent first.
// Ties share a rank, but the first member of the other partition always
// starts a new rank even on a score tie: a fresh death with a middling
// score outranks a stale one with a perfect score, and the boundary stays
// visible. The returned slice is capped at maxResults.
func Rank(candidates []Candidate, window time.Duration, maxResults int, now time.Time) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	recent := make([]Candidate, 0, len(candidates))
	other := make([]Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		if isRecentDOD(candidate.DOD, window, now) {
			recent = append(recent, candidate)
		} else {
			other = append(other, candidate)
		}
	}

	sortByScore(recent)
	sortByScore(other)

	ranked := make([]Candidate, 0, len(candidates))

	rank := 0
	lastScore := -1

	for _, candidate := range recent {
		if candidate.ScoreFinal != lastScore {
			rank++
			lastScore = candidate.ScoreFinal
		}

		candidate.Rank = rank
		ranked = append(ranked, candidate)
	}

	// Partition boundary: force a new rank regardless of score.
	lastScore = -1

	for _, candidate := range other {
		if candidate.ScoreFinal != lastScore {
			rank++
			lastScore = candidate.ScoreFinal
		}

		candidate.Rank = rank
		ranked = append(ranked, candidate)
	}

	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	return ranked
}

func sortByScore(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ScoreFinal > candidates[j].ScoreFinal
	})
}

// isRecentDOD reports whether an ISO DOD falls within [now-window, now].
// Future DODs are parse artifacts and never count as recent.
func isRecentDOD(dod string, window time.Duration, now time.Time) bool {
	if dod == "" {
		return false
	}

	parsed, err := time.Parse("2006-01-02", dod)
	if err != nil {
		return false
	}

	if parsed.After(now) {
		return false
	}

	return now.Sub(parsed) <= window
}
