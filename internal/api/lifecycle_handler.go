package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type (
	rejectRequest struct {
		Reason string `json:"reason,omitempty"`
	}

	markReadResponse struct {
		Updated int64 `json:"updated"`
	}
)

// handleConfirm marks a result as the right person and freezes its saved
// search.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lifecycle == nil {
		s.writeError(w, r, http.StatusNotFound, "result lifecycle is not configured")

		return
	}

	if err := s.deps.Lifecycle.Confirm(r.Context(), r.PathValue("id")); err != nil {
		s.serveError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

// handleReject marks a result as the wrong person. The optional body
// carries a reason recorded on the resulting exclusion.
func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lifecycle == nil {
		s.writeError(w, r, http.StatusNotFound, "result lifecycle is not configured")

		return
	}

	var req rejectRequest

	if r.Body != nil && r.ContentLength != 0 {
		body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "invalid request body")

			return
		}
	}

	if err := s.deps.Lifecycle.Reject(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		s.serveError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

// handleRestore returns a rejected result to pending.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lifecycle == nil {
		s.writeError(w, r, http.StatusNotFound, "result lifecycle is not configured")

		return
	}

	if err := s.deps.Lifecycle.Restore(r.Context(), r.PathValue("id")); err != nil {
		s.serveError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

// handleMarkRead flips all pending unread results under a saved search to
// read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lifecycle == nil {
		s.writeError(w, r, http.StatusNotFound, "result lifecycle is not configured")

		return
	}

	queryID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "query id must be an integer")

		return
	}

	updated, err := s.deps.Lifecycle.MarkRead(r.Context(), queryID)
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, markReadResponse{Updated: updated})
}
