package search

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
)

// Provider selection and credential errors, raised once at startup.
var (
	ErrUnknownProvider = errors.New("unknown search provider")
)

// Config holds the engine's environment-driven settings.
//
// Environment variables:
//   - SEARCH_PROVIDER: serper | serpapi | google (default serper)
//   - SERPER_API_KEY, SERPAPI_KEY: wrapper-provider credentials
//   - GOOGLE_CSE_API_KEY, GOOGLE_CSE_ID: Google Custom Search credentials
//   - SEARCH_RECENCY_WINDOW: DOD recency window (default 336h = 14 days)
//   - SEARCH_MAX_RESULTS: result cap (default 20)
//   - SEARCH_ENRICH_TOP: how many top results to enrich (default 1)
//   - ENRICH_PAGES: "false" disables enrichment entirely (default enabled)
//   - DOMAINS_BLOCKED: comma-separated host suffixes to drop (default .gov)
//   - NICKNAMES_FILE: optional YAML file of extra nickname groups
type Config struct {
	Provider       string
	SerperAPIKey   string
	SerpAPIKey     string
	GoogleAPIKey   string
	GoogleEngineID string
	RecencyWindow  time.Duration
	MaxResults     int
	EnrichTopN     int
	EnrichPages    bool
	BlockedDomains []string
	NicknamesFile  string
}

// LoadConfig reads engine settings from the environment.
func LoadConfig() *Config {
	return &Config{
		Provider:       strings.ToLower(config.GetEnvStr("SEARCH_PROVIDER", string(ProviderSerper))),
		SerperAPIKey:   config.GetEnvStr("SERPER_API_KEY", ""),
		SerpAPIKey:     config.GetEnvStr("SERPAPI_KEY", ""),
		GoogleAPIKey:   config.GetEnvStr("GOOGLE_CSE_API_KEY", ""),
		GoogleEngineID: config.GetEnvStr("GOOGLE_CSE_ID", ""),
		RecencyWindow:  config.GetEnvDuration("SEARCH_RECENCY_WINDOW", DefaultRecencyWindow),
		MaxResults:     config.GetEnvInt("SEARCH_MAX_RESULTS", DefaultMaxResults),
		EnrichTopN:     config.GetEnvInt("SEARCH_ENRICH_TOP", DefaultEnrichTopN),
		EnrichPages:    config.GetEnvBool("ENRICH_PAGES", true),
		BlockedDomains: config.ParseCommaSeparatedList(config.GetEnvStr("DOMAINS_BLOCKED", ".gov")),
		NicknamesFile:  config.GetEnvStr("NICKNAMES_FILE", ""),
	}
}

// Validate checks provider selection and credentials. A selected provider
// with a missing credential is a startup failure, never a per-query one.
func (c *Config) Validate() error {
	switch ProviderType(c.Provider) {
	case ProviderSerper:
		if c.SerperAPIKey == "" {
			return fmt.Errorf("%w: SERPER_API_KEY required for provider serper", ErrMissingAPIKey)
		}
	case ProviderSerpAPI:
		if c.SerpAPIKey == "" {
			return fmt.Errorf("%w: SERPAPI_KEY required for provider serpapi", ErrMissingAPIKey)
		}
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("%w: GOOGLE_CSE_API_KEY required for provider google", ErrMissingAPIKey)
		}

		if c.GoogleEngineID == "" {
			return fmt.Errorf("%w: GOOGLE_CSE_ID required for provider google", ErrMissingEngineID)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}

	if c.MaxResults <= 0 {
		return errors.New("SEARCH_MAX_RESULTS must be positive")
	}

	if c.EnrichTopN < 0 {
		return errors.New("SEARCH_ENRICH_TOP must not be negative")
	}

	return nil
}

// NewProvider constructs the configured provider implementation.
func (c *Config) NewProvider(logger *slog.Logger) (Provider, error) {
	switch ProviderType(c.Provider) {
	case ProviderSerper:
		return NewSerperProvider(c.SerperAPIKey, logger)
	case ProviderSerpAPI:
		return NewSerpAPIProvider(c.SerpAPIKey, logger)
	case ProviderGoogle:
		return NewGoogleCSEProvider(c.GoogleAPIKey, c.GoogleEngineID, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
}

// LogValue implements slog.LogValuer with credentials masked.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", c.Provider),
		slog.String("serper_api_key", maskSecret(c.SerperAPIKey)),
		slog.String("serpapi_api_key", maskSecret(c.SerpAPIKey)),
		slog.String("google_api_key", maskSecret(c.GoogleAPIKey)),
		slog.String("google_engine_id", c.GoogleEngineID),
		slog.Duration("recency_window", c.RecencyWindow),
		slog.Int("max_results", c.MaxResults),
		slog.Int("enrich_top_n", c.EnrichTopN),
		slog.String("domains_blocked", strings.Join(c.BlockedDomains, ",")),
	)
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) <= 4 {
		return "****"
	}

	return secret[:2] + "****" + secret[len(secret)-2:]
}
