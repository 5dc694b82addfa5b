// Package search implements the obituary search engine: query normalization,
// provider adapters, candidate extraction, dedup, scoring, ranking, and the
// pipeline that ties them together.
//
// Data flow for one query:
//
//	normalize → provider call → parse candidates → dedup → blocked-domain
//	filter → exclusion filter → score → rank with DOD grouping → enrich
//	top-N → cap at MaxResults
package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
)

// Validation errors surfaced to HTTP 400 / CLI exit 1. Never retried.
var (
	// ErrLastNameRequired is returned when a query carries no last name.
	ErrLastNameRequired = errors.New("last name is required")

	// ErrFirstNameRequired is returned when a query carries neither a first
	// name nor a nickname.
	ErrFirstNameRequired = errors.New("first name or nickname is required")

	// ErrInvalidAge is returned when the age is out of the plausible range.
	ErrInvalidAge = errors.New("age must be between 1 and 120")

	// ErrInvalidInputDate is returned when inputDate is not a valid ISO date.
	ErrInvalidInputDate = errors.New("inputDate must be a valid ISO date (YYYY-MM-DD)")

	// ErrFutureInputDate is returned when inputDate lies in the future.
	ErrFutureInputDate = errors.New("inputDate cannot be in the future")
)

const maxQueryAge = 120

type (
	// Query is the raw person query as supplied by a caller. Fields mirror
	// the saved-search row; normalization happens in Normalize.
	Query struct {
		FirstName  string `json:"firstName"`
		MiddleName string `json:"middleName,omitempty"`
		NickName   string `json:"nickName,omitempty"`
		LastName   string `json:"lastName"`
		City       string `json:"city,omitempty"`
		State      string `json:"state,omitempty"`
		Age        int    `json:"age,omitempty"`
		KeyWords   string `json:"keyWords,omitempty"`

		// InputDate is the ISO date the watch-list entry was created; the
		// age criterion adjusts for years elapsed since then. Empty means
		// "today". Future dates are rejected.
		InputDate string `json:"inputDate,omitempty"`
	}

	// NormalizedQuery is the canonical form of a Query: lowercased trimmed
	// fields, expanded first-name variants, parsed keywords, and the
	// deterministic search key that scopes exclusions.
	NormalizedQuery struct {
		First         string
		FirstVariants []string
		Last          string
		City          string
		State         string
		Age           int
		Keywords      []string
		InputDate     time.Time
		SearchKey     string
	}

	// ProviderType identifies where a candidate was found.
	ProviderType string

	// Scores holds the per-criterion scores, each 0–100 or nil when an
	// input field was absent on either side.
	Scores struct {
		NameLast  *int `json:"nameLast"`
		NameFirst *int `json:"nameFirst"`
		State     *int `json:"state"`
		City      *int `json:"city"`
		Age       *int `json:"age"`
		Keywords  *int `json:"keywords"`
	}

	// Candidate is a structured obituary hit extracted from a single source
	// URL, carried through dedup, scoring, ranking, and enrichment.
	Candidate struct {
		ID string `json:"id"`

		NameFull  string `json:"nameFull"`
		NameFirst string `json:"nameFirst,omitempty"`
		NameLast  string `json:"nameLast,omitempty"`
		Age       int    `json:"age,omitempty"`
		DOD       string `json:"dod,omitempty"`
		City      string `json:"city,omitempty"`
		State     string `json:"state,omitempty"`

		Source      string       `json:"source"`
		URL         string       `json:"url"`
		Title       string       `json:"title,omitempty"`
		Snippet     string       `json:"snippet,omitempty"`
		Provider    ProviderType `json:"provider"`
		ImageURL    string       `json:"imageUrl,omitempty"`
		AlsoFoundAt []string     `json:"alsoFoundAt,omitempty"`

		DateVisitation string `json:"dateVisitation,omitempty"`
		DateFuneral    string `json:"dateFuneral,omitempty"`

		Fingerprint string `json:"fingerprint"`

		ScoresCriteria Scores `json:"scoresCriteria"`
		ScoreFinal     int    `json:"scoreFinal"`
		ScoreMax       int    `json:"scoreMax"`
		CriteriaCnt    int    `json:"criteriaCnt"`
		Rank           int    `json:"rank,omitempty"`
	}
)

// Provider types. Native marks funeral-home and memorial-site sources whose
// structured fields are trusted over search-engine snippets during dedup.
const (
	ProviderSerper  ProviderType = "serper"
	ProviderSerpAPI ProviderType = "serpapi"
	ProviderGoogle  ProviderType = "google"
	ProviderNative  ProviderType = "native"
)

// unknownComponent renders missing fingerprint components.
const unknownComponent = "unknown"

// Normalize validates the query and produces its canonical form.
//
// Rules:
//   - last name required; first name or nickname required
//   - nickname substitutes for a missing first name
//   - first-name variants expand through the nickname set (nickname included)
//   - missing inputDate means "today"; future inputDate is an error
func (q *Query) Normalize(nicknames *normalize.Nicknames) (*NormalizedQuery, error) {
	last := normalize.Name(q.LastName)
	if last == "" {
		return nil, ErrLastNameRequired
	}

	first := normalize.Name(q.FirstName)
	nick := normalize.Name(q.NickName)

	if first == "" && nick == "" {
		return nil, ErrFirstNameRequired
	}

	if first == "" {
		first = nick
	}

	if q.Age < 0 || q.Age > maxQueryAge {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAge, q.Age)
	}

	inputDate := time.Now().UTC().Truncate(24 * time.Hour)

	if strings.TrimSpace(q.InputDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(q.InputDate))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidInputDate, q.InputDate)
		}

		if parsed.After(time.Now().UTC()) {
			return nil, fmt.Errorf("%w: %q", ErrFutureInputDate, q.InputDate)
		}

		inputDate = parsed
	}

	variantSet := make(map[string]struct{})
	for _, v := range nicknames.Variants(first) {
		variantSet[v] = struct{}{}
	}

	if nick != "" {
		for _, v := range nicknames.Variants(nick) {
			variantSet[v] = struct{}{}
		}
	}

	variants := make([]string, 0, len(variantSet))

	// The canonical first name leads; siblings follow in stable order.
	variants = append(variants, first)

	for _, v := range nicknames.Variants(first) {
		if v != first {
			variants = append(variants, v)
		}
	}

	if nick != "" && nick != first {
		if _, seen := variantSet[nick]; seen {
			present := false

			for _, v := range variants {
				if v == nick {
					present = true

					break
				}
			}

			if !present {
				variants = append(variants, nick)

				for _, v := range nicknames.Variants(nick) {
					found := false

					for _, existing := range variants {
						if existing == v {
							found = true

							break
						}
					}

					if !found {
						variants = append(variants, v)
					}
				}
			}
		}
	}

	city := normalize.City(q.City)

	state := ""
	if strings.TrimSpace(q.State) != "" {
		state = normalize.State(q.State)
	}

	return &NormalizedQuery{
		First:         first,
		FirstVariants: variants,
		Last:          last,
		City:          city,
		State:         state,
		Age:           q.Age,
		Keywords:      normalize.Keywords(q.KeyWords),
		InputDate:     inputDate,
		SearchKey:     normalize.SearchKey(q.LastName, firstOrNick(q), q.City, q.State, q.Age),
	}, nil
}

func firstOrNick(q *Query) string {
	if strings.TrimSpace(q.FirstName) != "" {
		return q.FirstName
	}

	return q.NickName
}

// NewCandidateID allocates the opaque per-candidate identifier used across
// dedup and persistence.
func NewCandidateID() string {
	return uuid.NewString()
}

// Fingerprint builds the content-addressed identity of a candidate:
// "last-firstInitial-city-state-dod", lowercased and hyphen-joined, with
// missing components rendered as the literal "unknown".
//
// Components are normalized BEFORE assembly, so "St. Louis" and
// "Saint Louis" produce the same fingerprint ("saint-louis").
//
// Examples:
//   - Fingerprint("Smith", "James", "Hamilton", "OH", "2024-01-15")
//     → "smith-j-hamilton-oh-2024-01-15"
//   - Fingerprint("Fagan", "Mary", "", "CA", "")
//     → "fagan-m-unknown-ca-unknown"
func Fingerprint(last, first, city, state, dod string) string {
	lastNorm := normalize.Name(last)
	if lastNorm == "" {
		lastNorm = unknownComponent
	}

	initial := unknownComponent
	if firstNorm := normalize.Name(first); firstNorm != "" {
		initial = string([]rune(firstNorm)[0])
	}

	cityNorm := unknownComponent
	if c := normalize.City(city); c != "" {
		cityNorm = strings.ReplaceAll(c, " ", "-")
	}

	stateNorm := unknownComponent
	if s := normalize.State(state); s != "" {
		stateNorm = strings.ToLower(s)
	}

	dodNorm := unknownComponent
	if strings.TrimSpace(dod) != "" {
		dodNorm = strings.TrimSpace(dod)
	}

	return strings.Join([]string{lastNorm, initial, cityNorm, stateNorm, dodNorm}, "-")
}

// ComputeFingerprint fills the candidate's fingerprint from its identity
// fields. Always defined, even with every optional field missing.
func (c *Candidate) ComputeFingerprint() {
	dod := ""
	if c.DOD != "" {
		dod = c.DOD
	}

	c.Fingerprint = Fingerprint(c.NameLast, c.NameFirst, c.City, c.State, dod)
}

// fingerprintDODRe recognizes a known-DOD fingerprint tail.
var fingerprintDODRe = regexp.MustCompile(`-\d{4}-\d{2}-\d{2}$`)

// FingerprintDODKnown reports whether a fingerprint's DOD component is a
// real date rather than "unknown". Exclusion filtering depends on this: a
// DOD-less fingerprint is too coarse to suppress on its own and must be
// paired with a URL match.
func FingerprintDODKnown(fingerprint string) bool {
	return fingerprintDODRe.MatchString(fingerprint)
}
