// Package capture is the inbound side of the relay: it accepts raw event
// occurrences over HTTP or from Redpanda and passes them to the storage writer.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cornjacket/commerce-events/internal/shared/httpserver"
)

// Config holds configuration for the capture service.
type Config struct {
	Port int

	// Consumer settings; the consumer runs only when Consume is set.
	Consume bool
	Brokers []string
	GroupID string
	Topics  []string
}

// RunningService represents a started capture service.
type RunningService struct {
	// Shutdown stops the HTTP server and consumer gracefully.
	Shutdown func(ctx context.Context) error
}

// Start starts the capture HTTP server and, when configured, the Redpanda
// consumer. The writer is the service's output: where occurrences become
// stored events.
func Start(ctx context.Context, cfg Config, writer EventWriter, health HealthChecker, logger *slog.Logger) (*RunningService, error) {
	logger = logger.With("service", "capture")

	svc := NewService(writer, logger)
	handler := NewHandler(svc, health, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := httpserver.New(httpserver.Config{Port: cfg.Port}, mux, logger)

	var consumer *Consumer
	if cfg.Consume {
		var err error
		consumer, err = NewConsumer(svc, ConsumerConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topics:  cfg.Topics,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create capture consumer: %w", err)
		}
	}

	server.Start()

	if consumer != nil {
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error("capture consumer error", "error", err)
			}
		}()
	}

	return &RunningService{
		Shutdown: func(shutdownCtx context.Context) error {
			logger.Info("shutting down capture service")
			if consumer != nil {
				consumer.Close()
			}
			return server.Shutdown(shutdownCtx)
		},
	}, nil
}
