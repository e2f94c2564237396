package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cornjacket/commerce-events/e2e/runner"
	_ "github.com/cornjacket/commerce-events/e2e/tests" // registers all tests
)

var errFailed = errors.New("e2e tests failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		env             string
		pattern         string
		list            bool
		deliveryTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "e2e",
		Short:         "Run end-to-end tests against a running relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			tests, err := runner.Tests(pattern)
			if err != nil {
				return err
			}

			if list {
				for _, t := range tests {
					fmt.Fprintf(out, "  %-25s %s\n", t.Name, t.Description)
				}
				return nil
			}

			cfg, err := runner.LoadConfig(env)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delivery-timeout") {
				cfg.SetDeliveryTimeout(deliveryTimeout)
			}

			fmt.Fprintf(out, "Environment: %s\n", cfg.Env)
			fmt.Fprintf(out, "Capture:     %s\n", cfg.CaptureURL)
			fmt.Fprintf(out, "Query:       %s\n", cfg.QueryURL)
			fmt.Fprintf(out, "Event code:  %s\n\n", cfg.EventCode)

			results := runner.Run(cmd.Context(), tests, cfg, out)
			runner.PrintSummary(out, results)

			if runner.Summarize(results).Failed > 0 || len(results) < len(tests) {
				return errFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&env, "env", "local", "environment (local, dev, staging)")
	cmd.Flags().StringVar(&pattern, "run", "", "run only tests whose name matches this regexp")
	cmd.Flags().BoolVar(&list, "list", false, "list matching tests and exit")
	cmd.Flags().DurationVar(&deliveryTimeout, "delivery-timeout", 0, "how long to wait for the sender; 0 skips delivery tests")
	return cmd
}
