package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/extract"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
)

// Fetcher defaults. Three workers keeps the pool polite toward funeral-home
// sites; eight seconds is long enough for slow shared hosting.
const (
	DefaultWorkers     = 3
	DefaultPageTimeout = 8 * time.Second

	// maxPageBytes bounds how much of a page is read. Obituary pages are
	// small; anything larger is a media blob we do not want.
	maxPageBytes = 2 << 20

	userAgent = "Mozilla/5.0 (compatible; obituary-watch/1.0)"
)

type (
	// Fetcher enriches candidates by fetching their pages through a bounded
	// worker pool. Implements the engine's Enricher contract.
	Fetcher struct {
		client  *http.Client
		workers int
		timeout time.Duration
		logger  *slog.Logger
	}

	// Option configures a Fetcher.
	Option func(*Fetcher)
)

var _ search.Enricher = (*Fetcher)(nil)

// WithWorkers overrides the worker-pool size.
func WithWorkers(workers int) Option {
	return func(f *Fetcher) {
		if workers > 0 {
			f.workers = workers
		}
	}
}

// WithPageTimeout overrides the per-page fetch timeout.
func WithPageTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithHTTPClient shares an existing HTTP client (and its connection pool)
// with the fetcher.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFetcher builds a page-enrichment fetcher.
//
// Environment variables (read by LoadOptions): ENRICH_WORKERS,
// ENRICH_PAGE_TIMEOUT.
func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		client:  &http.Client{},
		workers: DefaultWorkers,
		timeout: DefaultPageTimeout,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(fetcher)
	}

	return fetcher
}

// LoadOptions reads fetcher tuning from the environment.
func LoadOptions() []Option {
	return []Option{
		WithWorkers(config.GetEnvInt("ENRICH_WORKERS", DefaultWorkers)),
		WithPageTimeout(config.GetEnvDuration("ENRICH_PAGE_TIMEOUT", DefaultPageTimeout)),
	}
}

// Enrich fetches each candidate's page concurrently, bounded by the worker
// pool, and back-fills missing fields. Cancellation stops feeding the pool;
// in-flight fetches are abandoned via their per-page context. Failures are
// logged at debug and never propagate.
func (f *Fetcher) Enrich(ctx context.Context, candidates []*search.Candidate, metrics *search.Metrics) {
	if len(candidates) == 0 {
		return
	}

	jobs := make(chan *search.Candidate)

	var wg sync.WaitGroup

	workers := f.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for candidate := range jobs {
				f.enrichOne(ctx, candidate, metrics)
			}
		}()
	}

feed:
	for _, candidate := range candidates {
		select {
		case jobs <- candidate:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()
}

// enrichOne fetches one page and applies the extractors. Additive only: a
// field that already has a value keeps it.
func (f *Fetcher) enrichOne(ctx context.Context, candidate *search.Candidate, metrics *search.Metrics) {
	metrics.EnrichFetches.Add(1)

	rawHTML, err := f.fetchPage(ctx, candidate.URL)
	if err != nil {
		metrics.EnrichFailures.Add(1)
		f.logger.Debug("enrichment fetch failed",
			slog.String("url", candidate.URL),
			slog.String("error", err.Error()))

		return
	}

	text := Text(strings.NewReader(rawHTML))

	if candidate.DOD == "" {
		candidate.DOD = extract.DateOfDeath(text)
	}

	services := extract.Services(text, candidate.DOD)

	if candidate.DateVisitation == "" {
		candidate.DateVisitation = services.Visitation
	}

	if candidate.DateFuneral == "" {
		candidate.DateFuneral = services.Funeral
	}

	if candidate.ImageURL == "" {
		candidate.ImageURL = ImageURL(rawHTML, candidate.URL)
	}

	// Death precedes its services, so a service date is a usable stand-in
	// when the page never states the DOD outright.
	if candidate.DOD == "" {
		if candidate.DateFuneral != "" {
			candidate.DOD = candidate.DateFuneral
		} else if candidate.DateVisitation != "" {
			candidate.DOD = candidate.DateVisitation
		}
	}
}

// fetchPage retrieves one HTML page within the per-page timeout.
func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") &&
		!strings.Contains(contentType, "application/xhtml") {
		return "", fmt.Errorf("non-html content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}
