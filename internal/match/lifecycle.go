// Package match implements the result lifecycle: pending results become
// confirmed or rejected on user decision, rejections feed the exclusion
// store, and restore undoes a rejection.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

type (
	// QueryStore is the saved-search surface the lifecycle needs.
	QueryStore interface {
		GetByID(ctx context.Context, id int64) (*storage.SavedSearch, error)
		Confirm(ctx context.Context, id int64, at time.Time) error
	}

	// ResultStore is the result surface the lifecycle needs.
	ResultStore interface {
		GetByID(ctx context.Context, id string) (*storage.StoredResult, error)
		SetStatus(ctx context.Context, id string, status storage.ResultStatus, isRead bool) error
		MarkRead(ctx context.Context, queryID int64) (int64, error)
	}

	// Service routes lifecycle transitions across the stores. Exclusion
	// writes are best-effort: a failed exclusion never rolls back the
	// local status change, it only logs.
	Service struct {
		queries    QueryStore
		results    ResultStore
		exclusions exclusion.Store
		logger     *slog.Logger
		now        func() time.Time
	}
)

// NewService wires the lifecycle service.
func NewService(queries QueryStore, results ResultStore, exclusions exclusion.Store, logger *slog.Logger) *Service {
	return &Service{
		queries:    queries,
		results:    results,
		exclusions: exclusions,
		logger:     logger,
		now:        time.Now,
	}
}

// MarkRead flips every pending unread result under a saved search to read.
// Called when the user opens the search's results view.
func (s *Service) MarkRead(ctx context.Context, queryID int64) (int64, error) {
	return s.results.MarkRead(ctx, queryID)
}

// Confirm marks a result as the correct person and freezes its saved
// search: confirmed, timestamped, disabled. No further batch results will
// ever be inserted for that search, so at most one result per search holds
// confirmed.
func (s *Service) Confirm(ctx context.Context, resultID string) error {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return err
	}

	if err := s.results.SetStatus(ctx, resultID, storage.StatusConfirmed, true); err != nil {
		return fmt.Errorf("failed to confirm result: %w", err)
	}

	if err := s.queries.Confirm(ctx, result.UserQueryID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to freeze saved search: %w", err)
	}

	s.logger.Info("result confirmed",
		slog.String("result_id", resultID),
		slog.Int64("query_id", result.UserQueryID))

	return nil
}

// Reject marks a result as the wrong person and inserts a per-query
// exclusion so it never resurfaces. The status change commits even when
// the exclusion insert fails.
func (s *Service) Reject(ctx context.Context, resultID, reason string) error {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return err
	}

	if err := s.results.SetStatus(ctx, resultID, storage.StatusRejected, true); err != nil {
		return fmt.Errorf("failed to reject result: %w", err)
	}

	saved, err := s.queries.GetByID(ctx, result.UserQueryID)
	if err != nil {
		s.logger.Error("rejected result's saved search missing, exclusion skipped",
			slog.String("result_id", resultID),
			slog.String("error", err.Error()))

		return nil
	}

	if reason == "" {
		reason = exclusion.DefaultReason
	}

	_, _, err = s.exclusions.Add(ctx, &exclusion.Exclusion{
		Scope:               exclusion.ScopePerQuery,
		SearchKey:           saved.SearchKey,
		FingerprintExcluded: result.Fingerprint,
		URLExcluded:         result.URL,
		NameExcluded:        result.NameFull,
		Reason:              reason,
	})
	if err != nil {
		s.logger.Error("failed to insert exclusion for rejection",
			slog.String("result_id", resultID),
			slog.String("search_key", saved.SearchKey),
			slog.String("error", err.Error()))

		return nil
	}

	s.logger.Info("result rejected",
		slog.String("result_id", resultID),
		slog.String("fingerprint", result.Fingerprint),
		slog.String("reason", reason))

	return nil
}

// Restore returns a rejected result to pending and removes the matching
// per-query exclusion if one exists. Same best-effort semantics as Reject.
func (s *Service) Restore(ctx context.Context, resultID string) error {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return err
	}

	if err := s.results.SetStatus(ctx, resultID, storage.StatusPending, true); err != nil {
		return fmt.Errorf("failed to restore result: %w", err)
	}

	saved, err := s.queries.GetByID(ctx, result.UserQueryID)
	if err != nil {
		s.logger.Error("restored result's saved search missing, exclusion kept",
			slog.String("result_id", resultID),
			slog.String("error", err.Error()))

		return nil
	}

	removed, err := s.exclusions.RemoveMatching(ctx, saved.SearchKey, result.Fingerprint)
	if err != nil {
		s.logger.Error("failed to remove exclusion on restore",
			slog.String("result_id", resultID),
			slog.String("error", err.Error()))

		return nil
	}

	s.logger.Info("result restored",
		slog.String("result_id", resultID),
		slog.Bool("exclusion_removed", removed))

	return nil
}
