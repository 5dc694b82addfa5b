package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPIProvider queries serpapi.com's Google engine.
type SerpAPIProvider struct {
	apiKey string
	client *http.Client
	logger *slog.Logger
}

var _ Provider = (*SerpAPIProvider)(nil)

// NewSerpAPIProvider builds the serpapi.com adapter. The API key is required.
func NewSerpAPIProvider(apiKey string, logger *slog.Logger) (*SerpAPIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: serpapi", ErrMissingAPIKey)
	}

	return &SerpAPIProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: providerTimeout},
		logger: logger.With(slog.String("provider", string(ProviderSerpAPI))),
	}, nil
}

// Name implements Provider.
func (p *SerpAPIProvider) Name() ProviderType {
	return ProviderSerpAPI
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source,omitempty"`
	} `json:"organic_results"`
	Error string `json:"error,omitempty"`
}

// Search implements Provider. Failures are logged and yield an empty slice.
func (p *SerpAPIProvider) Search(ctx context.Context, query *NormalizedQuery) []Candidate {
	q := buildQueryString(query)

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q)
	params.Set("num", strconv.Itoa(providerResultCount))
	params.Set("gl", "us")
	params.Set("hl", "en")
	params.Set("api_key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIEndpoint+"?"+params.Encode(), nil)
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

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		p.logger.Error("failed to decode response", slog.String("error", err.Error()))

		return nil
	}

	if parsed.Error != "" {
		p.logger.Error("provider reported error", slog.String("query", q), slog.String("error", parsed.Error))

		return nil
	}

	hits := make([]rawHit, 0, len(parsed.OrganicResults))
	for _, o := range parsed.OrganicResults {
		hits = append(hits, rawHit{title: o.Title, link: o.Link, snippet: o.Snippet, source: o.Source})
	}

	p.logger.Debug("provider call complete", slog.String("query", q), slog.Int("organic", len(hits)))

	return parseHits(hits, ProviderSerpAPI, query, p.logger)
}
