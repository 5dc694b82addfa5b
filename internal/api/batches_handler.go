package api

import (
	"net/http"
	"strconv"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

const defaultBatchListLimit = 50

type batchesResponse struct {
	Batches []*storage.Batch `json:"batches"`
}

// handleListBatches lists recent batch records, newest first.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	if s.deps.Batches == nil {
		s.writeError(w, r, http.StatusNotFound, "batches are not configured")

		return
	}

	limit := defaultBatchListLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")

			return
		}

		limit = parsed
	}

	batches, err := s.deps.Batches.List(r.Context(), limit)
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	if batches == nil {
		batches = []*storage.Batch{}
	}

	s.writeJSON(w, r, http.StatusOK, batchesResponse{Batches: batches})
}

// handleLatestBatch returns the most recent batch record.
func (s *Server) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Batches == nil {
		s.writeError(w, r, http.StatusNotFound, "batches are not configured")

		return
	}

	batch, err := s.deps.Batches.Latest(r.Context())
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, batch)
}

// handleGetBatch returns one batch record by ID.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Batches == nil {
		s.writeError(w, r, http.StatusNotFound, "batches are not configured")

		return
	}

	batch, err := s.deps.Batches.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, batch)
}
