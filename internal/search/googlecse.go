package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// ErrMissingEngineID is returned when the Google Custom Search engine ID is
// not configured alongside its API key.
var ErrMissingEngineID = errors.New("google custom search engine id is not set")

const googleCSEEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSEProvider queries the Google Custom Search JSON API. Unlike the
// wrapper providers it needs both an API key and an engine ID (cx).
type GoogleCSEProvider struct {
	apiKey   string
	engineID string
	client   *http.Client
	logger   *slog.Logger
}

var _ Provider = (*GoogleCSEProvider)(nil)

// NewGoogleCSEProvider builds the Google Custom Search adapter.
func NewGoogleCSEProvider(apiKey, engineID string, logger *slog.Logger) (*GoogleCSEProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: google", ErrMissingAPIKey)
	}

	if engineID == "" {
		return nil, ErrMissingEngineID
	}

	return &GoogleCSEProvider{
		apiKey:   apiKey,
		engineID: engineID,
		client:   &http.Client{Timeout: providerTimeout},
		logger:   logger.With(slog.String("provider", string(ProviderGoogle))),
	}, nil
}

// Name implements Provider.
func (p *GoogleCSEProvider) Name() ProviderType {
	return ProviderGoogle
}

type googleCSEResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// Search implements Provider. Failures are logged and yield an empty slice.
func (p *GoogleCSEProvider) Search(ctx context.Context, query *NormalizedQuery) []Candidate {
	q := buildQueryString(query)

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", q)
	params.Set("num", strconv.Itoa(providerResultCount))
	params.Set("gl", "us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleCSEEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		p.logger.Error("failed to build request", slog.String("error", err.Error()))

		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("provider call failed", slog.String("query", q), slog.String("error", err.Error()))

		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Error("provider returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("query", q),
			slog.String("body", string(payload)))

		return nil
	}

	var parsed googleCSEResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		p.logger.Error("failed to decode response", slog.String("error", err.Error()))

		return nil
	}

	hits := make([]rawHit, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		hits = append(hits, rawHit{title: item.Title, link: item.Link, snippet: item.Snippet, source: item.DisplayLink})
	}

	p.logger.Debug("provider call complete", slog.String("query", q), slog.Int("items", len(hits)))

	return parseHits(hits, ProviderGoogle, query, p.logger)
}
