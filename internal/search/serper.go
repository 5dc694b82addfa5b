package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrMissingAPIKey is returned at construction when a provider is selected
// without its credential. Provider credentials are checked once at startup,
// never per query.
var ErrMissingAPIKey = errors.New("provider API key is not set")

const (
	serperEndpoint = "https://google.serper.dev/search"

	// providerResultCount is how many organic results we ask each provider
	// for. Ten covers the result page the ranking cap ever surfaces.
	providerResultCount = 10

	// providerTimeout bounds one provider HTTP round trip.
	providerTimeout = 15 * time.Second
)

// SerperProvider queries the serper.dev Google wrapper.
type SerperProvider struct {
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// compile-time interface check
var _ Provider = (*SerperProvider)(nil)

// NewSerperProvider builds the serper.dev adapter. The API key is required.
func NewSerperProvider(apiKey string, logger *slog.Logger) (*SerperProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: serper", ErrMissingAPIKey)
	}

	return &SerperProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: providerTimeout},
		logger: logger.With(slog.String("provider", string(ProviderSerper))),
	}, nil
}

// Name implements Provider.
func (p *SerperProvider) Name() ProviderType {
	return ProviderSerper
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source,omitempty"`
	} `json:"organic"`
}

// Search implements Provider. Failures are logged and yield an empty slice.
func (p *SerperProvider) Search(ctx context.Context, query *NormalizedQuery) []Candidate {
	q := buildQueryString(query)

	body, err := json.Marshal(serperRequest{Q: q, Num: providerResultCount, GL: "us", HL: "en"})
	if err != nil {
		p.logger.Error("failed to encode request", slog.String("error", err.Error()))

		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperEndpoint, bytes.NewReader(body))
	if err != nil {
		p.logger.Error("failed to build request", slog.String("error", err.Error()))

		return nil
	}

	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

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

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		p.logger.Error("failed to decode response", slog.String("error", err.Error()))

		return nil
	}

	hits := make([]rawHit, 0, len(parsed.Organic))
	for _, o := range parsed.Organic {
		hits = append(hits, rawHit{title: o.Title, link: o.Link, snippet: o.Snippet, source: o.Source})
	}

	p.logger.Debug("provider call complete", slog.String("query", q), slog.Int("organic", len(hits)))

	return parseHits(hits, ProviderSerper, query, p.logger)
}
