package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/batch"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/enrich"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

const variantLoadTimeout = 10 * time.Second

// errExactlyOneMode is returned when a command needs exactly one of two
// mutually exclusive flags.
var errExactlyOneMode = errors.New("exactly one of --file or --batch is required")

// runBatch executes one sweep over all active saved searches and prints the
// report.
func runBatch(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inputFile := fs.String("file", "", "scraper capture file recorded on the batch")

	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := connect()
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	exclusions, err := exclusion.NewPostgresStore(conn, logger)
	if err != nil {
		return err
	}

	engine, err := buildEngine(conn, exclusions, logger)
	if err != nil {
		return err
	}

	queryStore, err := storage.NewQueryStore(conn, logger)
	if err != nil {
		return err
	}

	resultStore, err := storage.NewResultStore(conn, logger)
	if err != nil {
		return err
	}

	batchStore, err := storage.NewBatchStore(conn, logger)
	if err != nil {
		return err
	}

	var notifier batch.Notifier

	if notifyConfig := batch.LoadNotifierConfig(); notifyConfig.Enabled() {
		kafkaNotifier := batch.NewKafkaNotifier(notifyConfig, logger)
		defer func() { _ = kafkaNotifier.Close() }()

		notifier = kafkaNotifier
	}

	// Stop between queries on SIGINT/SIGTERM; the interrupted sweep still
	// finalizes its batch record.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := batch.NewRunner(engine, queryStore, resultStore, batchStore, notifier, logger)

	report, err := runner.Run(ctx, *inputFile)
	if err != nil {
		return err
	}

	return printJSON(report)
}

// searchOutput mirrors the GET /search response body.
type searchOutput struct {
	Results   []search.Candidate `json:"results"`
	KeySearch string             `json:"keySearch"`
}

// runSearch runs one ad-hoc query and prints the ranked candidates. The
// database is optional here: without it the search runs without exclusions
// and without operator-curated name variants.
func runSearch(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	first := fs.String("first", "", "first name")
	middle := fs.String("middle", "", "middle name")
	nick := fs.String("nick", "", "nickname")
	last := fs.String("last", "", "last name (required)")
	city := fs.String("city", "", "city")
	state := fs.String("state", "", "two-letter state code or full state name")
	age := fs.Int("age", 0, "approximate age")
	keywords := fs.String("keywords", "", "comma-separated keywords")
	inputDate := fs.String("input-date", "", "ISO date the watch entry was created")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var exclusions search.ExclusionSource

	conn, err := connect()
	if err != nil {
		logger.Warn("Database unavailable, searching without exclusions",
			slog.String("error", err.Error()))

		conn = nil
	} else {
		defer func() { _ = conn.Close() }()

		store, err := exclusion.NewPostgresStore(conn, logger)
		if err != nil {
			return err
		}

		exclusions = store
	}

	engine, err := buildEngine(conn, exclusions, logger)
	if err != nil {
		return err
	}

	query := &search.Query{
		FirstName:  *first,
		MiddleName: *middle,
		NickName:   *nick,
		LastName:   *last,
		City:       *city,
		State:      *state,
		Age:        *age,
		KeyWords:   *keywords,
		InputDate:  *inputDate,
	}

	metrics := &search.Metrics{}

	result, err := engine.Search(context.Background(), query, metrics)
	if err != nil {
		return err
	}

	logger.Info("Search completed", slog.Any("metrics", metrics.Snapshot()))

	if result.Candidates == nil {
		result.Candidates = []search.Candidate{}
	}

	return printJSON(searchOutput{Results: result.Candidates, KeySearch: result.SearchKey})
}

type excludeOutput struct {
	Exclusion *exclusion.Exclusion `json:"exclusion"`
	IsNew     bool                 `json:"isNew"`
}

// runExclude creates (or idempotently finds) an exclusion rule.
func runExclude(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("exclude", flag.ExitOnError)
	scope := fs.String("scope", "", "exclusion scope: per-query or global (default from --search-key)")
	searchKey := fs.String("search-key", "", "search key scoping a per-query exclusion")
	fingerprint := fs.String("fingerprint", "", "fingerprint to exclude")
	url := fs.String("url", "", "URL to exclude")
	excludedName := fs.String("name", "", "display name recorded on the exclusion")
	reason := fs.String("reason", "", "why this entry is excluded")

	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := connect()
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	store, err := exclusion.NewPostgresStore(conn, logger)
	if err != nil {
		return err
	}

	resolvedScope := exclusion.Scope(*scope)
	if *scope == "" {
		resolvedScope = exclusion.ScopeGlobal
		if *searchKey != "" {
			resolvedScope = exclusion.ScopePerQuery
		}
	}

	created, isNew, err := store.Add(context.Background(), &exclusion.Exclusion{
		Scope:               resolvedScope,
		SearchKey:           *searchKey,
		FingerprintExcluded: *fingerprint,
		URLExcluded:         *url,
		NameExcluded:        *excludedName,
		Reason:              *reason,
	})
	if err != nil {
		return err
	}

	return printJSON(excludeOutput{Exclusion: created, IsNew: isNew})
}

// runExclusions lists the per-query exclusions for one search key.
func runExclusions(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("exclusions", flag.ExitOnError)
	searchKey := fs.String("search-key", "", "search key to list (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *searchKey == "" {
		return exclusion.ErrSearchKeyRequired
	}

	conn, err := connect()
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	store, err := exclusion.NewPostgresStore(conn, logger)
	if err != nil {
		return err
	}

	exclusions, err := store.GetByKeySearch(context.Background(), *searchKey)
	if err != nil {
		return err
	}

	if exclusions == nil {
		exclusions = []*exclusion.Exclusion{}
	}

	return printJSON(exclusions)
}

// runUnexclude removes an exclusion by ID.
func runUnexclude(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("unexclude", flag.ExitOnError)
	id := fs.Int64("id", 0, "exclusion id to remove (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id <= 0 {
		return errors.New("--id is required")
	}

	conn, err := connect()
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	store, err := exclusion.NewPostgresStore(conn, logger)
	if err != nil {
		return err
	}

	removed, err := store.Remove(context.Background(), *id)
	if err != nil {
		return err
	}

	if !removed {
		return fmt.Errorf("exclusion %d not found", *id)
	}

	return printJSON(map[string]bool{"success": true})
}

// runExclusionStats prints the exclusion store counts.
func runExclusionStats(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("exclusion-stats", flag.ExitOnError)

	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := connect()
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	store, err := exclusion.NewPostgresStore(conn, logger)
	if err != nil {
		return err
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	return printJSON(stats)
}

// buildEngine assembles the search pipeline from environment configuration.
// A nil connection skips the operator-curated name variants; a nil exclusion
// source skips exclusion filtering.
func buildEngine(conn *storage.Connection, exclusions search.ExclusionSource, logger *slog.Logger) (*search.Engine, error) {
	searchConfig := search.LoadConfig()
	if err := searchConfig.Validate(); err != nil {
		return nil, err
	}

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

	if conn != nil {
		if err := loadNameVariants(conn, nicknames, logger); err != nil {
			// The static seed still covers common names; keep going.
			logger.Warn("Failed to load name variants from database", slog.String("error", err.Error()))
		}
	}

	opts := []search.EngineOption{
		search.WithRecencyWindow(searchConfig.RecencyWindow),
		search.WithMaxResults(searchConfig.MaxResults),
		search.WithEnrichTopN(searchConfig.EnrichTopN),
		search.WithBlockedDomains(searchConfig.BlockedDomains),
	}

	if exclusions != nil {
		opts = append(opts, search.WithExclusions(exclusions))
	}

	if searchConfig.EnrichPages {
		opts = append(opts, search.WithEnricher(enrich.NewFetcher(logger, enrich.LoadOptions()...)))
	}

	return search.NewEngine(provider, nicknames, logger, opts...), nil
}

func loadNameVariants(conn *storage.Connection, nicknames *normalize.Nicknames, logger *slog.Logger) error {
	variants, err := storage.NewVariantStore(conn)
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

	logger.Debug("Loaded name variants", slog.Int("pairs", len(pairs)))

	return nil
}
