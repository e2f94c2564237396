package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cornjacket/commerce-events/internal/services/delivery"
	"github.com/cornjacket/commerce-events/internal/shared/infra/postgres"
)

func newSendCommand(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send all waiting events once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

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

			sender, err := a.sender(postgres.NewEventRepo(pg.Pool(), logger))
			if err != nil {
				return err
			}

			runner := delivery.NewRunner(sender, a.locker(), nil, delivery.RunnerConfig{
				Interval: cfg.SendInterval,
			}, logger)

			if err := runner.RunOnce(ctx); err != nil {
				if errors.Is(err, delivery.ErrLockHeld) {
					fmt.Fprintln(cmd.OutOrStdout(), "Another sender is running, nothing to do")
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Waiting events were sent")
			return nil
		},
	}
}

func newMigrateCommand(env envFunc) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

			if status {
				states, err := postgres.MigrationStatus(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				return writeMigrationStatus(cmd.OutOrStdout(), states)
			}

			if err := postgres.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "show applied and pending migrations instead of applying them")
	return cmd
}

func writeMigrationStatus(out io.Writer, states []postgres.MigrationState) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tFILE\tSTATE\tAPPLIED AT")
	for _, s := range states {
		state, at := "pending", "-"
		if s.Applied {
			state, at = "applied", s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Path, state, at)
	}
	return w.Flush()
}
