package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/api/middleware"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

type (
	// SearchEngine is the one-shot search surface the server exposes.
	SearchEngine interface {
		Search(ctx context.Context, query *search.Query, metrics *search.Metrics) (*search.Result, error)
	}

	// BatchReader is the read-only batch surface for the inspection
	// endpoints.
	BatchReader interface {
		GetByID(ctx context.Context, id string) (*storage.Batch, error)
		Latest(ctx context.Context) (*storage.Batch, error)
		List(ctx context.Context, limit int) ([]*storage.Batch, error)
	}

	// Lifecycle is the result-decision surface (confirm, reject, restore,
	// mark-read).
	Lifecycle interface {
		Confirm(ctx context.Context, resultID string) error
		Reject(ctx context.Context, resultID, reason string) error
		Restore(ctx context.Context, resultID string) error
		MarkRead(ctx context.Context, queryID int64) (int64, error)
	}

	// Pinger is the database health surface backing GET /ready.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Dependencies carries the collaborators the server routes to. Nil
	// fields disable their endpoints (404) or features (auth, rate limit).
	Dependencies struct {
		Engine      SearchEngine
		Exclusions  exclusion.Store
		Batches     BatchReader
		Lifecycle   Lifecycle
		KeyStore    storage.KeyStore
		RateLimiter middleware.RateLimiter
		DB          Pinger
	}

	// Server is the HTTP API server.
	Server struct {
		httpServer *http.Server
		logger     *slog.Logger
		config     *ServerConfig
		deps       Dependencies
		startTime  time.Time
	}
)

// NewServer builds the server with its middleware stack. Configuration
// (ports, timeouts, CORS) is separated from dependencies (stores, engine).
func NewServer(cfg *ServerConfig, deps Dependencies) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	mux := http.NewServeMux()

	server := &Server{
		logger: logger,
		config: cfg,
		deps:   deps,
	}

	server.setupRoutes(mux)

	keyStore := deps.KeyStore
	if !cfg.AuthEnabled {
		keyStore = nil
	}

	if keyStore != nil { // pragma: allowlist secret
		logger.Info("API key authentication enabled")
	} else {
		logger.Warn("API key authentication disabled")
	}

	if deps.RateLimiter != nil {
		logger.Info("rate limiting enabled")
	} else {
		logger.Warn("rate limiting disabled")
	}

	// Middleware executes top-to-bottom: correlation ID first so every
	// later stage can log it, rate limiting before request logging so
	// rejected spam stays out of the request log.
	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithAuth(keyStore, logger),
		middleware.WithRateLimit(deps.RateLimiter, logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Start starts the HTTP server and blocks until shutdown. SIGINT and
// SIGTERM trigger graceful shutdown.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting search API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout))

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed to start",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()))

			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("received shutdown signal", slog.String("signal", sig.String()))

		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout))

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown failed", slog.String("error", err.Error()))

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.deps.RateLimiter != nil {
		if limiter, ok := s.deps.RateLimiter.(io.Closer); ok {
			if err := limiter.Close(); err != nil {
				s.logger.Error("failed to close rate limiter", slog.String("error", err.Error()))
			}
		}
	}

	s.logger.Info("server shutdown completed")

	return nil
}
