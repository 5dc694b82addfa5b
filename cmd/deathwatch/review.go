package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

type (
	// captureEntry is one record of a scraper capture file: the person
	// query plus the obituary URLs the scraper found for it.
	captureEntry struct {
		FirstName string   `json:"firstName"`
		LastName  string   `json:"lastName"`
		City      string   `json:"city,omitempty"`
		State     string   `json:"state,omitempty"`
		Age       int      `json:"age,omitempty"`
		KeyWords  string   `json:"keyWords,omitempty"`
		URLs      []string `json:"urls"`
	}

	// reviewRow is the coverage report for one query: how many of the
	// scraper's captured URLs the engine also surfaced.
	reviewRow struct {
		Query    string  `json:"query"`
		Captured int     `json:"captured"`
		Found    int     `json:"found"`
		Matched  int     `json:"matched"`
		Coverage float64 `json:"coverage"`
	}

	reviewReport struct {
		BatchID  string      `json:"batchId,omitempty"`
		File     string      `json:"file,omitempty"`
		Queries  []reviewRow `json:"queries"`
		Coverage float64     `json:"coverage"`
	}
)

// runReview reports engine coverage against scraper captures, either the
// legacy capture tables of a past batch (--batch) or a capture file run
// through the engine live (--file).
func runReview(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	batchID := fs.String("batch", "", "batch id to review from the capture tables")
	file := fs.String("file", "", "capture file to run through the engine")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*batchID == "") == (*file == "") {
		return errExactlyOneMode
	}

	if *batchID != "" {
		return reviewBatch(*batchID, logger)
	}

	return reviewFile(*file, logger)
}

// reviewBatch compares the scraper's captured URLs for one batch against
// the results the engine persisted for the matching saved searches.
func reviewBatch(batchID string, logger *slog.Logger) error {
	ctx := context.Background()

	conn, err := connect()
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	batchStore, err := storage.NewBatchStore(conn, logger)
	if err != nil {
		return err
	}

	if _, err := batchStore.GetByID(ctx, batchID); err != nil {
		return err
	}

	captures, err := storage.NewCaptureStore(conn)
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

	captured, err := captures.QueriesForBatch(ctx, batchID)
	if err != nil {
		return err
	}

	report := reviewReport{BatchID: batchID, Queries: []reviewRow{}}

	for _, query := range captured {
		capturedResults, err := captures.ResultsForQuery(ctx, query.ID)
		if err != nil {
			return err
		}

		capturedURLs := make(map[string]struct{}, len(capturedResults))
		for _, result := range capturedResults {
			capturedURLs[normalize.URL(result.URL)] = struct{}{}
		}

		row := reviewRow{
			Query:    fmt.Sprintf("%s %s", query.FirstName, query.LastName),
			Captured: len(capturedURLs),
		}

		searchKey := normalize.SearchKey(query.LastName, query.FirstName, query.City, query.State, query.Age)

		saved, err := queryStore.GetBySearchKey(ctx, searchKey)

		switch {
		case errors.Is(err, storage.ErrQueryNotFound):
			// No saved search watches this person; nothing to compare.
		case err != nil:
			return err
		default:
			stored, err := resultStore.ListByQuery(ctx, saved.ID)
			if err != nil {
				return err
			}

			row.Found = len(stored)

			for _, result := range stored {
				if _, ok := capturedURLs[normalize.URL(result.URL)]; ok {
					row.Matched++
				}
			}
		}

		row.Coverage = coverage(row.Matched, row.Captured)
		report.Queries = append(report.Queries, row)
	}

	report.Coverage = overallCoverage(report.Queries)

	return printJSON(report)
}

// reviewFile runs each capture-file query through the engine live and
// reports how many captured URLs come back.
func reviewFile(path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var entries []captureEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse capture file: %w", err)
	}

	var exclusions search.ExclusionSource

	conn, err := connect()
	if err != nil {
		logger.Warn("Database unavailable, reviewing without exclusions",
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

	ctx := context.Background()
	report := reviewReport{File: path, Queries: []reviewRow{}}

	for _, entry := range entries {
		result, err := engine.Search(ctx, &search.Query{
			FirstName: entry.FirstName,
			LastName:  entry.LastName,
			City:      entry.City,
			State:     entry.State,
			Age:       entry.Age,
			KeyWords:  entry.KeyWords,
		}, &search.Metrics{})
		if err != nil {
			return fmt.Errorf("search for %s %s failed: %w", entry.FirstName, entry.LastName, err)
		}

		capturedURLs := make(map[string]struct{}, len(entry.URLs))
		for _, url := range entry.URLs {
			capturedURLs[normalize.URL(url)] = struct{}{}
		}

		row := reviewRow{
			Query:    fmt.Sprintf("%s %s", entry.FirstName, entry.LastName),
			Captured: len(capturedURLs),
			Found:    len(result.Candidates),
		}

		for _, candidate := range result.Candidates {
			if _, ok := capturedURLs[normalize.URL(candidate.URL)]; ok {
				row.Matched++
			}
		}

		row.Coverage = coverage(row.Matched, row.Captured)
		report.Queries = append(report.Queries, row)
	}

	report.Coverage = overallCoverage(report.Queries)

	return printJSON(report)
}

func coverage(matched, captured int) float64 {
	if captured == 0 {
		return 0
	}

	return float64(matched) / float64(captured)
}

func overallCoverage(rows []reviewRow) float64 {
	var matched, captured int

	for _, row := range rows {
		matched += row.Matched
		captured += row.Captured
	}

	return coverage(matched, captured)
}
