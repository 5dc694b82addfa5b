package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
)

type (
	// ExclusionSource supplies the suppression sets consulted during
	// filtering. Implemented by the exclusion store.
	ExclusionSource interface {
		// FingerprintsExcluded returns excluded fingerprints for the
		// search key, including global exclusions.
		FingerprintsExcluded(ctx context.Context, searchKey string) (map[string]struct{}, error)

		// URLsExcluded returns excluded normalized URLs for the search
		// key, including global exclusions.
		URLsExcluded(ctx context.Context, searchKey string) (map[string]struct{}, error)
	}

	// Enricher back-fills missing fields on top-ranked candidates by
	// fetching their pages. Implemented by the enrich package. Mutations
	// are additive-only and failures are silent per candidate.
	Enricher interface {
		Enrich(ctx context.Context, candidates []*Candidate, metrics *Metrics)
	}

	// Engine runs the full per-query pipeline.
	Engine struct {
		provider       Provider
		nicknames      *normalize.Nicknames
		scorer         *Scorer
		exclusions     ExclusionSource
		enricher       Enricher
		recencyWindow  time.Duration
		maxResults     int
		enrichTopN     int
		blockedDomains []string
		logger         *slog.Logger
		now            func() time.Time
	}

	// EngineOption configures optional engine collaborators and knobs.
	EngineOption func(*Engine)

	// Result is the outcome of one engine run.
	Result struct {
		SearchKey  string      `json:"searchKey"`
		Candidates []Candidate `json:"candidates"`
	}
)

// Engine defaults. Enrichment covers only the best guess unless configured
// wider.
const (
	DefaultMaxResults = 20
	DefaultEnrichTopN = 1
)

// WithExclusions wires the exclusion store into filtering.
func WithExclusions(source ExclusionSource) EngineOption {
	return func(e *Engine) { e.exclusions = source }
}

// WithEnricher wires the page-enrichment fetcher.
func WithEnricher(enricher Enricher) EngineOption {
	return func(e *Engine) { e.enricher = enricher }
}

// WithRecencyWindow overrides the DOD recency window used by ranking.
func WithRecencyWindow(window time.Duration) EngineOption {
	return func(e *Engine) {
		if window > 0 {
			e.recencyWindow = window
		}
	}
}

// WithMaxResults overrides the result cap.
func WithMaxResults(maxResults int) EngineOption {
	return func(e *Engine) {
		if maxResults > 0 {
			e.maxResults = maxResults
		}
	}
}

// WithEnrichTopN overrides how many top-ranked candidates are enriched.
func WithEnrichTopN(topN int) EngineOption {
	return func(e *Engine) {
		if topN >= 0 {
			e.enrichTopN = topN
		}
	}
}

// WithBlockedDomains overrides the domain suffix block list.
func WithBlockedDomains(suffixes []string) EngineOption {
	return func(e *Engine) { e.blockedDomains = suffixes }
}

// withClock injects a fixed clock for ranking tests.
func withClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
		e.scorer.now = now
	}
}

// NewEngine assembles the pipeline around a provider and nickname set.
func NewEngine(provider Provider, nicknames *normalize.Nicknames, logger *slog.Logger, opts ...EngineOption) *Engine {
	engine := &Engine{
		provider:       provider,
		nicknames:      nicknames,
		scorer:         NewScorer(nicknames),
		recencyWindow:  DefaultRecencyWindow,
		maxResults:     DefaultMaxResults,
		enrichTopN:     DefaultEnrichTopN,
		blockedDomains: DefaultBlockedDomains,
		logger:         logger,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Search runs one query through the pipeline:
//
//	normalize → provider → dedup → blocked-domain filter → exclusion
//	filter → score → rank → enrich top-N → cap
//
// Validation failures return an error; provider and enrichment failures
// degrade to fewer results and never fail the call.
func (e *Engine) Search(ctx context.Context, query *Query, metrics *Metrics) (*Result, error) {
	normalized, err := query.Normalize(e.nicknames)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	logger := e.logger.With(slog.String("search_key", normalized.SearchKey))

	metrics.ProviderCalls.Add(1)

	candidates := e.provider.Search(ctx, normalized)
	metrics.CandidatesRaw.Add(int64(len(candidates)))

	candidates = Dedup(candidates, func(c *Candidate) int {
		provisional := *c
		e.scorer.Score(normalized, &provisional)

		return provisional.ScoreFinal
	})
	metrics.CandidatesMerged.Add(int64(len(candidates)))

	before := len(candidates)
	candidates = FilterBlockedDomains(candidates, e.blockedDomains)
	metrics.CandidatesBlocked.Add(int64(before - len(candidates)))

	candidates = e.filterExcluded(ctx, normalized.SearchKey, candidates, metrics, logger)

	scored := make([]Candidate, 0, len(candidates))

	for i := range candidates {
		e.scorer.Score(normalized, &candidates[i])

		if Dropped(&candidates[i]) {
			metrics.CandidatesDropped.Add(1)

			continue
		}

		scored = append(scored, candidates[i])
	}

	ranked := Rank(scored, e.recencyWindow, e.maxResults, e.now().UTC())

	e.enrichTop(ctx, ranked, metrics)

	logger.Info("search complete",
		slog.Int("raw", before),
		slog.Int("ranked", len(ranked)))

	return &Result{SearchKey: normalized.SearchKey, Candidates: ranked}, nil
}

// filterExcluded drops candidates matching user-suppression rules. A URL
// match always excludes. A fingerprint match excludes only when the
// fingerprint carries a real DOD; a DOD-less fingerprint is too coarse to
// fire alone and needs a URL match as well. Lookup failures log and fail
// open so a store outage degrades filtering, not the search.
func (e *Engine) filterExcluded(ctx context.Context, searchKey string, candidates []Candidate, metrics *Metrics, logger *slog.Logger) []Candidate {
	if e.exclusions == nil || len(candidates) == 0 {
		return candidates
	}

	fingerprints, err := e.exclusions.FingerprintsExcluded(ctx, searchKey)
	if err != nil {
		metrics.Errors.Add(1)
		logger.Error("failed to load excluded fingerprints", slog.String("error", err.Error()))

		return candidates
	}

	urls, err := e.exclusions.URLsExcluded(ctx, searchKey)
	if err != nil {
		metrics.Errors.Add(1)
		logger.Error("failed to load excluded urls", slog.String("error", err.Error()))

		return candidates
	}

	kept := make([]Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		if e.excluded(&candidate, fingerprints, urls) {
			metrics.CandidatesExcluded.Add(1)

			continue
		}

		kept = append(kept, candidate)
	}

	return kept
}

func (e *Engine) excluded(candidate *Candidate, fingerprints, urls map[string]struct{}) bool {
	if _, found := urls[normalize.URL(candidate.URL)]; found {
		return true
	}

	if _, found := fingerprints[candidate.Fingerprint]; found {
		if FingerprintDODKnown(candidate.Fingerprint) {
			return true
		}

		// DOD-unknown fingerprint: exclude only together with a URL hit,
		// which was already checked above.
	}

	return false
}

// enrichTop fetches pages for the top-N ranked candidates that are missing
// any of DOD, service dates, or image.
func (e *Engine) enrichTop(ctx context.Context, ranked []Candidate, metrics *Metrics) {
	if e.enricher == nil || e.enrichTopN == 0 {
		return
	}

	targets := make([]*Candidate, 0, e.enrichTopN)

	for i := range ranked {
		if len(targets) == e.enrichTopN {
			break
		}

		candidate := &ranked[i]
		if candidate.URL == "" {
			continue
		}

		if candidate.DOD != "" && candidate.DateFuneral != "" &&
			candidate.DateVisitation != "" && candidate.ImageURL != "" {
			continue
		}

		targets = append(targets, candidate)
	}

	if len(targets) == 0 {
		return
	}

	e.enricher.Enrich(ctx, targets, metrics)
}
