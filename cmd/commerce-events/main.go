package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cornjacket/commerce-events/internal/shared/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg *config.Config
	var logger *slog.Logger

	root := &cobra.Command{
		Use:           "commerce-events",
		Short:         "Relay commerce events to Adobe I/O Events",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded

			logger = newLogger(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)
			return nil
		},
	}

	// Commands receive the loaded configuration through env, which is only
	// populated once PersistentPreRunE has run.
	env := func() (*config.Config, *slog.Logger) { return cfg, logger }

	root.AddCommand(
		newServeCommand(env),
		newSendCommand(env),
		newMigrateCommand(env),
		newListCommand(env),
		newSubscribeCommand(env),
		newUnsubscribeCommand(env),
		newCreateProviderCommand(env),
		newSyncMetadataCommand(env),
		newCheckConfigurationCommand(env),
		newEmitCommand(env),
	)
	return root
}

type envFunc func() (*config.Config, *slog.Logger)

// newLogger creates a structured logger based on configuration.
func newLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
