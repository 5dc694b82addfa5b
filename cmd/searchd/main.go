// Package main provides the DeathWatch obituary search service.
//
// searchd exposes the ad-hoc search endpoint, the exclusion and batch
// inspection surfaces, and the result lifecycle API over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Data-Integrities/DeathWatch-sub000/internal/api"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/api/middleware"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/enrich"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/match"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "searchd"
)

const variantLoadTimeout = 10 * time.Second

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting DeathWatch search service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	// Load rate limiter configuration
	middlewareConfig := middleware.LoadConfig()

	// Create rate limiter instance (graceful shutdown handled by server.shutdown())
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("global_burst", middlewareConfig.GlobalBurst),
		slog.Int("key_rps", middlewareConfig.KeyRPS),
		slog.Int("key_burst", middlewareConfig.KeyBurst),
		slog.Int("unauth_rps", middlewareConfig.UnAuthRPS),
		slog.Int("unauth_burst", middlewareConfig.UnAuthBurst),
	)

	// Load storage configuration
	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close() // Ensure connection closes on normal shutdown
	}()

	var keyStore storage.KeyStore

	if serverConfig.AuthEnabled {
		keyStore, err = storage.NewPersistentKeyStore(dbConn, logger)
		if err != nil {
			logger.Error("Failed to connect to persistent key store", slog.String("error", err.Error()))

			_ = dbConn.Close()
			//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
			os.Exit(1)
		}

		logger.Info("API key authentication enabled",
			slog.String("database_url", storageConfig.MaskDatabaseURL()),
		)
	} else {
		logger.Warn("API key authentication disabled",
			slog.String("security", "Only use in trusted networks (localhost, VPN, internal)"),
			slog.String("note", "Set SEARCHD_AUTH_ENABLED=true to enable API key authentication"),
		)
	}

	exclusions, err := exclusion.NewPostgresStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to connect to exclusion store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	engine, err := buildEngine(dbConn, exclusions, logger)
	if err != nil {
		logger.Error("Failed to build search engine", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	queryStore, err := storage.NewQueryStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to connect to query store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	resultStore, err := storage.NewResultStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to connect to result store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	batchStore, err := storage.NewBatchStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to connect to batch store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	lifecycle := match.NewService(queryStore, resultStore, exclusions, logger)

	server := api.NewServer(serverConfig, api.Dependencies{
		Engine:      engine,
		Exclusions:  exclusions,
		Batches:     batchStore,
		Lifecycle:   lifecycle,
		KeyStore:    keyStore,
		RateLimiter: rateLimiter,
		DB:          dbConn,
	})

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("DeathWatch search service stopped")
}

// buildEngine assembles the search pipeline from environment configuration:
// provider, nickname table (static seed, optional file, operator-curated
// database rows), page enrichment, and the exclusion store.
func buildEngine(dbConn *storage.Connection, exclusions *exclusion.PostgresStore, logger *slog.Logger) (*search.Engine, error) {
	searchConfig := search.LoadConfig()
	if err := searchConfig.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Loaded search configuration", slog.Any("config", searchConfig))

	provider, err := searchConfig.NewProvider(logger)
	if err != nil {
		return nil, err
	}

	nicknames := normalize.NewNicknames()

	if searchConfig.NicknamesFile != "" {
		if err := nicknames.LoadFile(searchConfig.NicknamesFile); err != nil {
			return nil, err
		}
	}

	if err := loadNameVariants(dbConn, nicknames, logger); err != nil {
		// The static seed still covers common names; keep going.
		logger.Warn("Failed to load name variants from database", slog.String("error", err.Error()))
	}

	opts := []search.EngineOption{
		search.WithExclusions(exclusions),
		search.WithRecencyWindow(searchConfig.RecencyWindow),
		search.WithMaxResults(searchConfig.MaxResults),
		search.WithEnrichTopN(searchConfig.EnrichTopN),
		search.WithBlockedDomains(searchConfig.BlockedDomains),
	}

	if searchConfig.EnrichPages {
		opts = append(opts, search.WithEnricher(enrich.NewFetcher(logger, enrich.LoadOptions()...)))
	}

	return search.NewEngine(provider, nicknames, logger, opts...), nil
}

func loadNameVariants(dbConn *storage.Connection, nicknames *normalize.Nicknames, logger *slog.Logger) error {
	variants, err := storage.NewVariantStore(dbConn)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), variantLoadTimeout)
	defer cancel()

	pairs, err := variants.Pairs(ctx)
	if err != nil {
		return err
	}

	for _, pair := range pairs {
		nicknames.AddPair(pair[0], pair[1])
	}

	logger.Info("Loaded name variants", slog.Int("pairs", len(pairs)))

	return nil
}
