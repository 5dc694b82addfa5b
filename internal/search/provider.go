package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/extract"
)

// Provider is a web-search backend. Implementations never return an error:
// on any failure they log and return an empty slice, so one flaky provider
// call degrades a single query instead of failing a batch.
type Provider interface {
	// Name returns the provider tag recorded on candidates.
	Name() ProviderType

	// Search runs one obituary query and returns raw candidates parsed
	// from the provider's organic results.
	Search(ctx context.Context, query *NormalizedQuery) []Candidate
}

// rawHit is the provider-independent shape of one organic search result.
type rawHit struct {
	title   string
	link    string
	snippet string
	source  string
}

// nativeHosts are funeral-home and memorial platforms that publish
// first-party obituaries. Candidates from these hosts are tagged
// ProviderNative so dedup prefers their structured fields over
// search-engine snippets.
var nativeHosts = []string{
	"legacy.com",
	"dignitymemorial.com",
	"tributearchive.com",
	"newcomerfamily.com",
	"everloved.com",
	"echovita.com",
	"funeralhomes.com",
	"memorials.com",
}

// buildQueryString assembles the provider query: quoted first-name variants
// OR'd together, the last name, the word "obituary", and city/state when
// present. Keywords never go into the query; they only affect scoring.
//
// Example: ("jim" OR "james" OR "jimmy") smith obituary hamilton OH
func buildQueryString(query *NormalizedQuery) string {
	var sb strings.Builder

	if len(query.FirstVariants) == 1 {
		sb.WriteString(fmt.Sprintf("%q", query.FirstVariants[0]))
	} else {
		quoted := make([]string, 0, len(query.FirstVariants))
		for _, v := range query.FirstVariants {
			quoted = append(quoted, fmt.Sprintf("%q", v))
		}

		sb.WriteString("(" + strings.Join(quoted, " OR ") + ")")
	}

	sb.WriteString(" " + query.Last + " obituary")

	if query.City != "" {
		sb.WriteString(" " + query.City)
	}

	if query.State != "" {
		sb.WriteString(" " + query.State)
	}

	return sb.String()
}

// hostOf extracts the lowercased host of a URL, with any www. prefix
// removed. Returns "" for unparseable URLs.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}

	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}

// isNativeHost reports whether the host belongs to a first-party obituary
// platform.
func isNativeHost(host string) bool {
	for _, native := range nativeHosts {
		if host == native || strings.HasSuffix(host, "."+native) {
			return true
		}
	}

	return false
}

// parseHit turns one organic result into a Candidate: extract the person
// name from title/snippet/slug, then DOD, age, location, and service dates
// from the combined text. Returns nil when no person name can be recovered.
func parseHit(hit rawHit, provider ProviderType, query *NormalizedQuery) *Candidate {
	text := hit.title + ". " + hit.snippet

	name := extract.PersonName(hit.title, hit.snippet, hit.link, query.Last)
	if name.Last == "" {
		return nil
	}

	host := hostOf(hit.link)

	tag := provider
	if isNativeHost(host) {
		tag = ProviderNative
	}

	source := hit.source
	if source == "" {
		source = host
	}

	candidate := &Candidate{
		ID:        NewCandidateID(),
		NameFull:  name.Full,
		NameFirst: name.First,
		NameLast:  name.Last,
		Age:       extract.Age(text),
		DOD:       extract.DateOfDeath(text),
		Source:    source,
		URL:       hit.link,
		Title:     hit.title,
		Snippet:   hit.snippet,
		Provider:  tag,
	}

	location := extract.CityState(text)
	candidate.City = location.City
	candidate.State = location.State

	services := extract.Services(text, candidate.DOD)
	candidate.DateVisitation = services.Visitation
	candidate.DateFuneral = services.Funeral

	candidate.ComputeFingerprint()

	return candidate
}

// parseHits maps raw organic results to candidates, dropping hits with no
// recoverable person name.
func parseHits(hits []rawHit, provider ProviderType, query *NormalizedQuery, logger *slog.Logger) []Candidate {
	candidates := make([]Candidate, 0, len(hits))

	for _, hit := range hits {
		candidate := parseHit(hit, provider, query)
		if candidate == nil {
			logger.Debug("dropped hit with no recoverable name",
				slog.String("url", hit.link),
				slog.String("title", hit.title))

			continue
		}

		candidates = append(candidates, *candidate)
	}

	return candidates
}
