package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/api/middleware"
)

const (
	healthCheckTimeout = 2 * time.Second
	expectedURLParts   = 2
)

// Route pairs a mux pattern with its handler, used for declarative
// registration of routes that bypass authentication.
type Route struct {
	Path    string
	Handler http.HandlerFunc
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Public health endpoints
	s.registerPublicRoutes(
		mux,
		Route{"GET /ping", s.handlePing},     // liveness probe
		Route{"GET /ready", s.handleReady},   // readiness probe with DB check
		Route{"GET /health", s.handleHealth}, // status, uptime, timestamp
		Route{"/", s.handleNotFound},         // catch-all 404
	)

	// Search
	mux.HandleFunc("GET /search", s.handleSearch)

	// Exclusions
	mux.HandleFunc("POST /exclude", s.handleCreateExclusion)
	mux.HandleFunc("GET /exclusions", s.handleListExclusions)
	mux.HandleFunc("DELETE /exclude/{id}", s.handleDeleteExclusion)

	// Batch inspection. The literal "latest" pattern is more specific than
	// {id}, so it wins route selection.
	mux.HandleFunc("GET /batches", s.handleListBatches)
	mux.HandleFunc("GET /batches/latest", s.handleLatestBatch)
	mux.HandleFunc("GET /batches/{id}", s.handleGetBatch)

	// Result lifecycle
	mux.HandleFunc("POST /results/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /results/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /results/{id}/restore", s.handleRestore)
	mux.HandleFunc("POST /queries/{id}/mark-read", s.handleMarkRead)
}

// registerPublicRoutes registers routes and marks their paths as bypassing
// authentication. Only health endpoints belong here.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"PATCH":  true,
		"DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		// Method-prefixed patterns ("GET /ping") register under the bare
		// path, which is what r.URL.Path carries at request time.
		path := route.Path

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("malformed route path, ignoring", slog.String("path", route.Path))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handlePing responds to liveness probes.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("failed to write ping response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()))
	}
}

// handleReady responds to readiness probes, verifying the database when
// one is configured. 503 tells the orchestrator to stop routing traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.deps.DB.Ping(ctx); err != nil {
		s.logger.Error("database health check failed",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))

		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// healthStatus is the GET /health response body.
type healthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime string
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	s.writeJSON(w, r, http.StatusOK, healthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    uptime,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "resource not found")
}
