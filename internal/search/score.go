package search

import (
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
)

// Per-criterion scoring constants.
const (
	scoreExact = 100

	// scoreNickname caps nickname matches below exact so that a true
	// first-name match always ranks higher.
	scoreNickname = 85

	// firstNameFuzzyCap scales fuzzy first-name similarity into 0–90.
	firstNameFuzzyCap = 90

	// firstNameFuzzyFloor is the minimum similarity for a fuzzy first-name
	// score; below it the criterion scores 0 and the candidate is dropped.
	firstNameFuzzyFloor = 0.70

	// cityStateConsolation is awarded when the city differs but the state
	// matches.
	cityStateConsolation = 50

	hoursPerYear = 24 * 365.25
)

// Scorer computes per-criterion scores for candidates against one
// normalized query. It holds the nickname set for variant checks.
type Scorer struct {
	nicknames *normalize.Nicknames

	// now is injectable for tests of the age adjustment.
	now func() time.Time
}

// NewScorer builds a scorer over the given nickname set.
func NewScorer(nicknames *normalize.Nicknames) *Scorer {
	return &Scorer{nicknames: nicknames, now: time.Now}
}

// similarity returns normalized Levenshtein similarity in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	if longest == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(a, b)

	return 1 - float64(distance)/float64(longest)
}

func intPtr(v int) *int { return &v }

// scoreLastName is Levenshtein similarity scaled to 0–100.
func (s *Scorer) scoreLastName(query *NormalizedQuery, candidate *Candidate) *int {
	candidateLast := normalize.Name(candidate.NameLast)
	if candidateLast == "" || query.Last == "" {
		return nil
	}

	return intPtr(int(similarity(query.Last, candidateLast) * 100))
}

// scoreFirstName: exact → 100, nickname variant → 85, fuzzy ≥ 0.70 → 0–90,
// else 0. A 0 here means "present and clearly different" and causes the
// candidate to be dropped before ranking.
func (s *Scorer) scoreFirstName(query *NormalizedQuery, candidate *Candidate) *int {
	candidateFirst := normalize.Name(candidate.NameFirst)
	if candidateFirst == "" || query.First == "" {
		return nil
	}

	for _, variant := range query.FirstVariants {
		if candidateFirst == variant {
			if variant == query.First {
				return intPtr(scoreExact)
			}

			return intPtr(scoreNickname)
		}
	}

	if s.nicknames.AreVariants(query.First, candidateFirst) {
		return intPtr(scoreNickname)
	}

	sim := similarity(query.First, candidateFirst)
	if sim < firstNameFuzzyFloor {
		return intPtr(0)
	}

	return intPtr(int(sim * firstNameFuzzyCap))
}

func (s *Scorer) scoreState(query *NormalizedQuery, candidate *Candidate) *int {
	if query.State == "" || candidate.State == "" {
		return nil
	}

	if strings.EqualFold(query.State, candidate.State) {
		return intPtr(scoreExact)
	}

	return intPtr(0)
}

// scoreCity compares normalized cities, so "St. Louis" matches
// "Saint Louis". A state match softens a city mismatch to 50.
func (s *Scorer) scoreCity(query *NormalizedQuery, candidate *Candidate) *int {
	candidateCity := normalize.City(candidate.City)
	if query.City == "" || candidateCity == "" {
		return nil
	}

	if candidateCity == query.City {
		return intPtr(scoreExact)
	}

	if query.State != "" && candidate.State != "" && strings.EqualFold(query.State, candidate.State) {
		return intPtr(cityStateConsolation)
	}

	return intPtr(0)
}

// adjustedQueryAge adds the fractional years elapsed since inputDate, so a
// watch-list entry created two years ago at age 80 compares against 82.
func (s *Scorer) adjustedQueryAge(query *NormalizedQuery) float64 {
	elapsed := s.now().UTC().Sub(query.InputDate).Hours() / hoursPerYear
	if elapsed < 0 {
		elapsed = 0
	}

	return float64(query.Age) + elapsed
}

func (s *Scorer) scoreAge(query *NormalizedQuery, candidate *Candidate) *int {
	if query.Age == 0 || candidate.Age == 0 {
		return nil
	}

	delta := float64(candidate.Age) - s.adjustedQueryAge(query)
	if delta < 0 {
		delta = -delta
	}

	switch {
	case delta <= 0.5:
		return intPtr(100)
	case delta <= 1:
		return intPtr(90)
	case delta <= 2:
		return intPtr(80)
	case delta <= 3:
		return intPtr(70)
	case delta <= 4:
		return intPtr(60)
	case delta <= 5:
		return intPtr(50)
	case delta <= 6:
		return intPtr(40)
	default:
		return intPtr(0)
	}
}

// scoreKeywords: null when the query carried none; 100 if any keyword
// appears case-insensitively in the candidate's title+snippet, else 0.
func (s *Scorer) scoreKeywords(query *NormalizedQuery, candidate *Candidate) *int {
	if len(query.Keywords) == 0 {
		return nil
	}

	haystack := strings.ToLower(candidate.Title + " " + candidate.Snippet)

	for _, keyword := range query.Keywords {
		if strings.Contains(haystack, keyword) {
			return intPtr(scoreExact)
		}
	}

	return intPtr(0)
}

// Score fills the candidate's per-criterion scores and the derived
// scoreFinal, scoreMax, and criteriaCnt.
func (s *Scorer) Score(query *NormalizedQuery, candidate *Candidate) {
	candidate.ScoresCriteria = Scores{
		NameLast:  s.scoreLastName(query, candidate),
		NameFirst: s.scoreFirstName(query, candidate),
		State:     s.scoreState(query, candidate),
		City:      s.scoreCity(query, candidate),
		Age:       s.scoreAge(query, candidate),
		Keywords:  s.scoreKeywords(query, candidate),
	}

	total, count := 0, 0

	for _, criterion := range []*int{
		candidate.ScoresCriteria.NameLast,
		candidate.ScoresCriteria.NameFirst,
		candidate.ScoresCriteria.State,
		candidate.ScoresCriteria.City,
		candidate.ScoresCriteria.Age,
		candidate.ScoresCriteria.Keywords,
	} {
		if criterion == nil {
			continue
		}

		total += *criterion
		count++
	}

	candidate.ScoreFinal = total
	candidate.ScoreMax = scoreExact * count
	candidate.CriteriaCnt = count
}

// Dropped reports whether a scored candidate must be removed rather than
// ranked: its first name was present and clearly someone else's. Same-surname
// strangers never reach the user.
func Dropped(candidate *Candidate) bool {
	first := candidate.ScoresCriteria.NameFirst

	return first != nil && *first == 0
}
