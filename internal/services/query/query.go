// Package query serves read-only views of stored events and their delivery
// status.
package query

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cornjacket/commerce-events/internal/shared/httpserver"
)

// Config holds configuration for the query service.
type Config struct {
	Port int
}

// RunningService represents a started query service.
type RunningService struct {
	// Shutdown stops the HTTP server gracefully.
	Shutdown func(ctx context.Context) error
}

// Start serves the read API over repo. It does not block.
func Start(ctx context.Context, cfg Config, repo EventRepository, logger *slog.Logger) (*RunningService, error) {
	logger = logger.With("service", "query")

	mux := http.NewServeMux()
	NewHandler(NewService(repo, logger), logger).RegisterRoutes(mux)

	server := httpserver.New(httpserver.Config{Port: cfg.Port}, mux, logger)
	server.Start()

	return &RunningService{
		Shutdown: func(shutdownCtx context.Context) error {
			logger.Info("shutting down query service")
			return server.Shutdown(shutdownCtx)
		},
	}, nil
}
