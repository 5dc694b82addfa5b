package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
)

type (
	// excludeRequest is the POST /exclude body. Scope defaults from the
	// presence of searchKey when omitted.
	excludeRequest struct {
		Scope       string `json:"scope,omitempty"`
		SearchKey   string `json:"searchKey,omitempty"`
		Fingerprint string `json:"fingerprint,omitempty"`
		URL         string `json:"url,omitempty"`
		Name        string `json:"name,omitempty"`
		Reason      string `json:"reason,omitempty"`
	}

	excludeResponse struct {
		Exclusion *exclusion.Exclusion `json:"exclusion"`
		IsNew     bool                 `json:"isNew"`
	}

	exclusionsResponse struct {
		Exclusions []*exclusion.Exclusion `json:"exclusions"`
	}

	successResponse struct {
		Success bool `json:"success"`
	}
)

// handleCreateExclusion creates (or idempotently finds) an exclusion rule.
func (s *Server) handleCreateExclusion(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exclusions == nil {
		s.writeError(w, r, http.StatusNotFound, "exclusions are not configured")

		return
	}

	var req excludeRequest

	body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")

		return
	}

	scope := exclusion.Scope(req.Scope)
	if req.Scope == "" {
		scope = exclusion.ScopeGlobal
		if req.SearchKey != "" {
			scope = exclusion.ScopePerQuery
		}
	}

	created, isNew, err := s.deps.Exclusions.Add(r.Context(), &exclusion.Exclusion{
		Scope:               scope,
		SearchKey:           req.SearchKey,
		FingerprintExcluded: req.Fingerprint,
		URLExcluded:         req.URL,
		NameExcluded:        req.Name,
		Reason:              req.Reason,
	})
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}

	s.writeJSON(w, r, status, excludeResponse{Exclusion: created, IsNew: isNew})
}

// handleListExclusions lists the per-query exclusions for one search key.
func (s *Server) handleListExclusions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exclusions == nil {
		s.writeError(w, r, http.StatusNotFound, "exclusions are not configured")

		return
	}

	searchKey := r.URL.Query().Get("searchKey")
	if searchKey == "" {
		s.writeError(w, r, http.StatusBadRequest, "searchKey query parameter is required")

		return
	}

	exclusions, err := s.deps.Exclusions.GetByKeySearch(r.Context(), searchKey)
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	if exclusions == nil {
		exclusions = []*exclusion.Exclusion{}
	}

	s.writeJSON(w, r, http.StatusOK, exclusionsResponse{Exclusions: exclusions})
}

// handleDeleteExclusion removes an exclusion by ID.
func (s *Server) handleDeleteExclusion(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exclusions == nil {
		s.writeError(w, r, http.StatusNotFound, "exclusions are not configured")

		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "exclusion id must be an integer")

		return
	}

	removed, err := s.deps.Exclusions.Remove(r.Context(), id)
	if err != nil {
		s.serveError(w, r, err)

		return
	}

	if !removed {
		s.writeError(w, r, http.StatusNotFound, "exclusion not found")

		return
	}

	s.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}
