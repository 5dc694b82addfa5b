package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
)

type stubProvider struct {
	candidates []Candidate
}

func (p *stubProvider) Name() ProviderType { return ProviderSerper }

func (p *stubProvider) Search(_ context.Context, _ *NormalizedQuery) []Candidate {
	out := make([]Candidate, len(p.candidates))
	copy(out, p.candidates)

	return out
}

type stubExclusions struct {
	fingerprints map[string]struct{}
	urls         map[string]struct{}
}

func (s *stubExclusions) FingerprintsExcluded(_ context.Context, _ string) (map[string]struct{}, error) {
	return s.fingerprints, nil
}

func (s *stubExclusions) URLsExcluded(_ context.Context, _ string) (map[string]struct{}, error) {
	return s.urls, nil
}

type recordingEnricher struct {
	enriched []string
}

func (e *recordingEnricher) Enrich(_ context.Context, candidates []*Candidate, _ *Metrics) {
	for _, c := range candidates {
		e.enriched = append(e.enriched, c.ID)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestCandidate(id, first, last, city, state, dod, url string) Candidate {
	c := Candidate{
		ID:        id,
		NameFull:  first + " " + last,
		NameFirst: first,
		NameLast:  last,
		City:      city,
		State:     state,
		DOD:       dod,
		URL:       url,
		Provider:  ProviderSerper,
	}
	c.ComputeFingerprint()

	return c
}

func TestEngineExcludesRejectedFingerprint(t *testing.T) {
	// A rejected candidate's fingerprint (DOD known) is suppressed on the
	// next run; a different candidate for the same query survives.
	stranger := newTestCandidate("stranger", "James", "Smith", "Cincinnati", "OH", "2024-01-15",
		"https://news.example.com/obits/james-smith-cincinnati")
	local := newTestCandidate("local", "James", "Smith", "Hamilton", "OH", "2024-01-15",
		"https://news.example.com/obits/james-smith-hamilton")

	require.Equal(t, "smith-j-cincinnati-oh-2024-01-15", stranger.Fingerprint)

	exclusions := &stubExclusions{
		fingerprints: map[string]struct{}{stranger.Fingerprint: {}},
		urls:         map[string]struct{}{},
	}

	engine := NewEngine(
		&stubProvider{candidates: []Candidate{stranger, local}},
		normalize.NewNicknames(),
		testLogger(),
		WithExclusions(exclusions),
	)

	metrics := &Metrics{}

	result, err := engine.Search(context.Background(), &Query{FirstName: "Jim", LastName: "Smith", City: "Hamilton", State: "OH", Age: 71}, metrics)
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "smith-j-hamilton-oh-2024-01-15", result.Candidates[0].Fingerprint)
	assert.Equal(t, int64(1), metrics.Snapshot().CandidatesExcluded)
}

func TestEngineDODUnknownFingerprintNeedsURLMatch(t *testing.T) {
	candidate := newTestCandidate("c", "James", "Smith", "Hamilton", "OH", "",
		"https://news.example.com/obits/james-smith")
	require.False(t, FingerprintDODKnown(candidate.Fingerprint))

	// Fingerprint-only exclusion with DOD unknown: too coarse, must not fire.
	exclusions := &stubExclusions{
		fingerprints: map[string]struct{}{candidate.Fingerprint: {}},
		urls:         map[string]struct{}{},
	}

	engine := NewEngine(
		&stubProvider{candidates: []Candidate{candidate}},
		normalize.NewNicknames(),
		testLogger(),
		WithExclusions(exclusions),
	)

	result, err := engine.Search(context.Background(), &Query{FirstName: "Jim", LastName: "Smith"}, &Metrics{})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 1, "DOD-unknown fingerprint alone must not exclude")

	// Paired with a URL match it fires.
	exclusions.urls = map[string]struct{}{normalize.URL(candidate.URL): {}}

	result, err = engine.Search(context.Background(), &Query{FirstName: "Jim", LastName: "Smith"}, &Metrics{})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestEngineDropsSameSurnameStranger(t *testing.T) {
	match := newTestCandidate("match", "James", "Smith", "", "OH", "", "https://a.example.com/1")
	stranger := newTestCandidate("stranger", "Margaret", "Smith", "", "OH", "", "https://b.example.com/2")

	engine := NewEngine(
		&stubProvider{candidates: []Candidate{match, stranger}},
		normalize.NewNicknames(),
		testLogger(),
	)

	metrics := &Metrics{}

	result, err := engine.Search(context.Background(), &Query{FirstName: "Jim", LastName: "Smith"}, metrics)
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "match", result.Candidates[0].ID)

	for _, candidate := range result.Candidates {
		first := candidate.ScoresCriteria.NameFirst
		if first != nil {
			assert.Greater(t, *first, 0)
		}
	}

	assert.Equal(t, int64(1), metrics.Snapshot().CandidatesDropped)
}

func TestEngineEnrichesOnlyTopN(t *testing.T) {
	fresh := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")

	best := newTestCandidate("best", "James", "Smith", "Hamilton", "OH", fresh, "https://a.example.com/1")
	second := newTestCandidate("second", "Jimmy", "Smith", "", "", "", "https://b.example.com/2")

	enricher := &recordingEnricher{}

	engine := NewEngine(
		&stubProvider{candidates: []Candidate{second, best}},
		normalize.NewNicknames(),
		testLogger(),
		WithEnricher(enricher),
	)

	result, err := engine.Search(context.Background(), &Query{FirstName: "Jim", LastName: "Smith", City: "Hamilton", State: "OH"}, &Metrics{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	require.Len(t, enricher.enriched, 1, "default enrichment covers only the best guess")
	assert.Equal(t, "best", enricher.enriched[0])
}

func TestEngineValidationError(t *testing.T) {
	engine := NewEngine(&stubProvider{}, normalize.NewNicknames(), testLogger())

	_, err := engine.Search(context.Background(), &Query{FirstName: "Jim"}, &Metrics{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLastNameRequired)
}

func TestEngineReturnsSearchKey(t *testing.T) {
	engine := NewEngine(&stubProvider{}, normalize.NewNicknames(), testLogger())

	result, err := engine.Search(context.Background(), &Query{FirstName: "Jim", LastName: "Smith"}, &Metrics{})
	require.NoError(t, err)
	assert.Len(t, result.SearchKey, 16)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "serper with key",
			config: Config{Provider: "serper", SerperAPIKey: "k", MaxResults: 20},
		},
		{
			name:    "serper without key",
			config:  Config{Provider: "serper", MaxResults: 20},
			wantErr: true,
		},
		{
			name:    "google without engine id",
			config:  Config{Provider: "google", GoogleAPIKey: "k", MaxResults: 20},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "bing", MaxResults: 20},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
