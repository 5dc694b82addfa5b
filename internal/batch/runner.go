// Package batch implements the daily sweep: run every active saved search
// through the engine, persist only new results, and hand unread summaries
// to the notification pipeline.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

type (
	// Engine is the search pipeline surface the runner drives.
	Engine interface {
		Search(ctx context.Context, query *search.Query, metrics *search.Metrics) (*search.Result, error)
	}

	// QueryStore is the saved-search surface the runner needs.
	QueryStore interface {
		ListActive(ctx context.Context) ([]*storage.SavedSearch, error)
		UpdateSearchKey(ctx context.Context, id int64, searchKey string) error
	}

	// ResultStore is the result surface the runner needs.
	ResultStore interface {
		FingerprintsForQuery(ctx context.Context, queryID int64) (map[string]struct{}, error)
		Insert(ctx context.Context, result *storage.StoredResult) error
		NullStaleImageURLs(ctx context.Context) (int64, error)
		UnreadPendingSummaries(ctx context.Context) ([]*storage.UnreadSummary, error)
	}

	// BatchStore records sweep bookkeeping.
	BatchStore interface {
		Create(ctx context.Context, inputFile string) (*storage.Batch, error)
		Finish(ctx context.Context, id string, totalQueries, totalResults int) error
	}

	// Notifier receives the post-sweep unread summaries. Delivery (mail,
	// push) happens downstream; the runner only hands off.
	Notifier interface {
		NotifyUnread(ctx context.Context, batchID string, summaries []*storage.UnreadSummary) error
	}

	// QueryError records one contained per-query failure.
	QueryError struct {
		QueryID int64  `json:"queryId"`
		Message string `json:"message"`
	}

	// Report summarizes one sweep.
	Report struct {
		BatchID         string                 `json:"batchId"`
		QueriesRun      int                    `json:"queriesRun"`
		QueriesSkipped  int                    `json:"queriesSkipped"`
		ResultsInserted int                    `json:"resultsInserted"`
		ImagesCleared   int64                  `json:"imagesCleared"`
		Errors          []QueryError           `json:"errors,omitempty"`
		Metrics         search.MetricsSnapshot `json:"metrics"`
		Elapsed         time.Duration          `json:"elapsed"`
	}

	// Runner executes sweeps.
	Runner struct {
		engine   Engine
		queries  QueryStore
		results  ResultStore
		batches  BatchStore
		notifier Notifier
		logger   *slog.Logger
	}
)

// NewRunner wires a sweep runner. A nil notifier disables hand-off.
func NewRunner(engine Engine, queries QueryStore, results ResultStore, batches BatchStore, notifier Notifier, logger *slog.Logger) *Runner {
	return &Runner{
		engine:   engine,
		queries:  queries,
		results:  results,
		batches:  batches,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one sweep over every active saved search. One query's
// failure never aborts the batch; cancellation is honored between queries
// so no insert is cut off mid-write.
func (r *Runner) Run(ctx context.Context, inputFile string) (*Report, error) {
	started := time.Now()

	searches, err := r.queries.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active searches: %w", err)
	}

	batch, err := r.batches.Create(ctx, inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch record: %w", err)
	}

	logger := r.logger.With(slog.String("batch_id", batch.ID))
	logger.Info("sweep started", slog.Int("active_searches", len(searches)))

	metrics := &search.Metrics{}
	report := &Report{BatchID: batch.ID}

	for _, saved := range searches {
		select {
		case <-ctx.Done():
			logger.Warn("sweep interrupted, stopping between queries",
				slog.Int("remaining", len(searches)-report.QueriesRun))

			return r.finish(ctx, batch, report, metrics, started, logger)
		default:
		}

		inserted, err := r.runOne(ctx, saved, batch, metrics, logger)
		report.QueriesRun++

		if err != nil {
			metrics.Errors.Add(1)
			report.Errors = append(report.Errors, QueryError{QueryID: saved.ID, Message: err.Error()})
			logger.Error("query failed",
				slog.Int64("query_id", saved.ID),
				slog.String("error", err.Error()))

			continue
		}

		report.ResultsInserted += inserted
	}

	return r.finish(ctx, batch, report, metrics, started, logger)
}

// runOne processes a single saved search and returns how many new results
// were inserted.
func (r *Runner) runOne(ctx context.Context, saved *storage.SavedSearch, batch *storage.Batch, metrics *search.Metrics, logger *slog.Logger) (int, error) {
	engineStart := time.Now()

	result, err := r.engine.Search(ctx, saved.Query(), metrics)
	if err != nil {
		return 0, fmt.Errorf("engine: %w", err)
	}

	engineElapsed := time.Since(engineStart)

	if result.SearchKey != saved.SearchKey {
		if err := r.queries.UpdateSearchKey(ctx, saved.ID, result.SearchKey); err != nil {
			return 0, fmt.Errorf("search key refresh: %w", err)
		}
	}

	known, err := r.results.FingerprintsForQuery(ctx, saved.ID)
	if err != nil {
		return 0, fmt.Errorf("fingerprint pre-read: %w", err)
	}

	insertStart := time.Now()
	inserted := 0

	// Insertion follows rank order so per-query row ordering is stable.
	for i := range result.Candidates {
		candidate := &result.Candidates[i]

		if _, seen := known[candidate.Fingerprint]; seen {
			continue
		}

		row := storage.ResultFromCandidate(saved.ID, candidate, batch.CreatedAt)

		if err := r.results.Insert(ctx, row); err != nil {
			return inserted, fmt.Errorf("insert result %s: %w", candidate.ID, err)
		}

		// Guard against duplicate fingerprints within one run.
		known[candidate.Fingerprint] = struct{}{}
		inserted++
	}

	logger.Debug("query swept",
		slog.Int64("query_id", saved.ID),
		slog.Int("candidates", len(result.Candidates)),
		slog.Int("inserted", inserted),
		slog.Duration("engine_ms", engineElapsed),
		slog.Duration("insert_ms", time.Since(insertStart)))

	return inserted, nil
}

// finish closes out the batch record, clears stale images, and hands the
// unread summaries to the notifier. Post-processing faults are logged but
// never fail a sweep that already persisted its results.
func (r *Runner) finish(ctx context.Context, batch *storage.Batch, report *Report, metrics *search.Metrics, started time.Time, logger *slog.Logger) (*Report, error) {
	if err := r.batches.Finish(ctx, batch.ID, report.QueriesRun, report.ResultsInserted); err != nil {
		logger.Error("failed to finalize batch record", slog.String("error", err.Error()))
	}

	cleared, err := r.results.NullStaleImageURLs(ctx)
	if err != nil {
		logger.Error("failed to clear stale image urls", slog.String("error", err.Error()))
	}

	report.ImagesCleared = cleared

	if r.notifier != nil {
		summaries, err := r.results.UnreadPendingSummaries(ctx)
		if err != nil {
			logger.Error("failed to summarize unread results", slog.String("error", err.Error()))
		} else if err := r.notifier.NotifyUnread(ctx, batch.ID, summaries); err != nil {
			logger.Error("failed to hand off notifications", slog.String("error", err.Error()))
		}
	}

	report.Metrics = metrics.Snapshot()
	report.Elapsed = time.Since(started)

	logger.Info("sweep finished",
		slog.Int("queries_run", report.QueriesRun),
		slog.Int("results_inserted", report.ResultsInserted),
		slog.Int("errors", len(report.Errors)),
		slog.Duration("elapsed", report.Elapsed))

	return report, nil
}
