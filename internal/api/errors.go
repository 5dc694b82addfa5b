package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/api/middleware"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

// errorBody is the uniform error envelope for every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
}

// writeError writes the standard error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, errorBody{Error: message})
}

// serveError maps a domain error onto the right status: known validation
// errors become 400, known not-found errors 404, everything else 500 with
// a generic body (the detail goes to the log, not the caller).
func (s *Server) serveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case isNotFoundError(err):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))

		s.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		search.ErrLastNameRequired,
		search.ErrFirstNameRequired,
		search.ErrInvalidAge,
		search.ErrInvalidInputDate,
		search.ErrFutureInputDate,
		exclusion.ErrSearchKeyRequired,
		exclusion.ErrSearchKeyForbidden,
		exclusion.ErrNoTarget,
		exclusion.ErrInvalidScope,
		storage.ErrQueryConfirmed,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}

func isNotFoundError(err error) bool {
	for _, sentinel := range []error{
		storage.ErrQueryNotFound,
		storage.ErrResultNotFound,
		storage.ErrBatchNotFound,
		exclusion.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}
