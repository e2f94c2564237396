package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cornjacket/commerce-events/internal/client/capture"
	"github.com/cornjacket/commerce-events/internal/shared/infra/redpanda"
)

func newEmitCommand(env envFunc) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "events:emit <event-code>",
		Short: "Publish a raw occurrence to the capture topics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()

			var payload map[string]any
			dec := json.NewDecoder(strings.NewReader(data))
			dec.UseNumber()
			if err := dec.Decode(&payload); err != nil {
				return fmt.Errorf("--data must be a JSON object: %w", err)
			}

			producer, err := redpanda.NewProducer(redpanda.ProducerConfig{
				Brokers:  cfg.Brokers(),
				ClientID: "commerce-events-cli",
			}, logger)
			if err != nil {
				return err
			}
			defer producer.Close()

			if err := producer.Ping(cmd.Context()); err != nil {
				return err
			}

			if err := capture.New(producer, logger).Emit(cmd.Context(), args[0], payload); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Event %s was published\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "{}", "event data as a JSON object")
	return cmd
}
