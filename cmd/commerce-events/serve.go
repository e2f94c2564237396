package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cornjacket/commerce-events/internal/services/capture"
	"github.com/cornjacket/commerce-events/internal/services/delivery"
	"github.com/cornjacket/commerce-events/internal/services/query"
	"github.com/cornjacket/commerce-events/internal/shared/infra/postgres"
)

func newServeCommand(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the capture endpoint and the scheduled sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

			slog.Info("starting commerce events relay",
				"capture_port", cfg.CapturePort,
				"query_port", cfg.QueryPort,
				"capture_consumer", cfg.CaptureConsumer,
				"send_interval", cfg.SendInterval,
				"redis", cfg.RedisAddr != "",
			)

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			pg, err := a.openDatabase(ctx)
			if err != nil {
				return err
			}
			defer pg.Close()

			repo := postgres.NewEventRepo(pg.Pool(), logger)

			sender, err := a.sender(repo)
			if err != nil {
				return err
			}

			// New rows wake the runner through LISTEN/NOTIFY; the interval
			// remains as a watchdog.
			var notifier delivery.Notifier
			listener, err := postgres.NewListener(ctx, cfg.DatabaseURL, postgres.InsertChannel, logger)
			if err != nil {
				slog.Warn("insert notifications unavailable, polling only", "error", err)
			} else {
				defer listener.Close(context.Background())
				notifier = listener
			}

			runner := delivery.NewRunner(sender, a.locker(), notifier, delivery.RunnerConfig{
				Interval: cfg.SendInterval,
			}, logger)

			runnerDone := make(chan struct{})
			go func() {
				defer close(runnerDone)
				if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("send runner stopped", "error", err)
				}
			}()

			captureSvc, err := capture.Start(ctx, capture.Config{
				Port:    cfg.CapturePort,
				Consume: cfg.CaptureConsumer,
				Brokers: cfg.Brokers(),
				GroupID: cfg.CaptureGroup,
				Topics:  cfg.CaptureTopics,
			}, a.writer(repo), pg, logger)
			if err != nil {
				return err
			}

			querySvc, err := query.Start(ctx, query.Config{Port: cfg.QueryPort}, repo, logger)
			if err != nil {
				return err
			}

			<-ctx.Done()
			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := querySvc.Shutdown(shutdownCtx); err != nil {
				slog.Error("query service shutdown error", "error", err)
			}
			if err := captureSvc.Shutdown(shutdownCtx); err != nil {
				slog.Error("capture service shutdown error", "error", err)
			}

			select {
			case <-runnerDone:
			case <-shutdownCtx.Done():
				slog.Warn("send runner did not stop in time")
			}

			slog.Info("commerce events relay stopped")
			return nil
		},
	}
}
