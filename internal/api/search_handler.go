package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/api/middleware"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
)

// searchResponse is the GET /search response body.
type searchResponse struct {
	Results   []search.Candidate `json:"results"`
	KeySearch string             `json:"keySearch"`
}

// handleSearch runs a one-shot search from query parameters.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Engine == nil {
		s.writeError(w, r, http.StatusNotFound, "search is not configured")

		return
	}

	params := r.URL.Query()

	query := &search.Query{
		FirstName:  params.Get("firstName"),
		MiddleName: params.Get("middleName"),
		NickName:   params.Get("nickname"),
		LastName:   params.Get("lastName"),
		City:       params.Get("city"),
		State:      params.Get("state"),
		KeyWords:   params.Get("keyWords"),
		InputDate:  params.Get("inputDate"),
	}

	if raw := params.Get("age"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "age must be an integer")

			return
		}

		query.Age = age
	}

	metrics := &search.Metrics{}

	result, err := s.deps.Engine.Search(r.Context(), query, metrics)
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	snapshot := metrics.Snapshot()
	s.logger.Info("search completed",
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		slog.String("search_key", result.SearchKey),
		slog.Int("results", len(result.Candidates)),
		slog.Int64("provider_calls", snapshot.ProviderCalls),
		slog.Int64("candidates_raw", snapshot.CandidatesRaw),
		slog.Int64("enrich_fetches", snapshot.EnrichFetches))

	candidates := result.Candidates
	if candidates == nil {
		candidates = []search.Candidate{}
	}

	s.writeJSON(w, r, http.StatusOK, searchResponse{
		Results:   candidates,
		KeySearch: result.SearchKey,
	})
}
