package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/services/catalog"
	"github.com/cornjacket/commerce-events/internal/services/subscription"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

const ruleFormat = "field|operator|value"

func newListCommand(env envFunc) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "events:list",
		Short: "Show the list of subscribed events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			defs, err := a.catalog.Sorted()
			if err != nil {
				return err
			}
			return writeEventList(cmd.OutOrStdout(), defs, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show parent, fields and rules as a table")
	return cmd
}

// writeEventList prints the enabled definitions, one name per line or as a
// table when verbose.
func writeEventList(w io.Writer, defs []*events.Definition, verbose bool) error {
	if !verbose {
		for _, def := range defs {
			if !def.Enabled {
				continue
			}
			name := def.Name
			if def.Parent != "" {
				name += fmt.Sprintf(" [parent: %s]", def.Parent)
			}
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPARENT\tFIELDS\tRULES")
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		rules := make([]string, 0, len(def.Rules))
		for _, r := range def.Rules {
			rules = append(rules, fmt.Sprintf("{ field: %s, operator: %s, value: %s }", r.Field, r.Operator, r.Value))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, def.Parent, strings.Join(def.Fields, ", "), strings.Join(rules, ", "))
	}
	return tw.Flush()
}

// parseRule splits a "field|operator|value" option. The value may itself
// contain the separator.
func parseRule(s string) (events.Rule, error) {
	parts := strings.SplitN(strings.Trim(s, `'"`), "|", 3)
	if len(parts) != 3 {
		return events.Rule{}, fmt.Errorf("input rules must be formatted as %q", ruleFormat)
	}
	return events.Rule{Field: parts[0], Operator: parts[1], Value: parts[2]}, nil
}

// subscriptionDefinition builds the definition for events:subscribe from its
// argument and options.
func subscriptionDefinition(code string, fields []string, parent string, rawRules []string) (*events.Definition, error) {
	if len(fields) == 0 {
		return nil, errors.New("you must specify at least one field")
	}
	if (parent == "") != (len(rawRules) == 0) {
		return nil, errors.New(`the "parent" and "rules" options must be used together`)
	}

	def := &events.Definition{
		Name:     strings.ToLower(catalog.RemoveCommercePrefix(code)),
		Parent:   strings.ToLower(catalog.RemoveCommercePrefix(parent)),
		Fields:   fields,
		Enabled:  true,
		Optional: true,
	}
	for _, raw := range rawRules {
		rule, err := parseRule(raw)
		if err != nil {
			return nil, err
		}
		def.Rules = append(def.Rules, rule)
	}
	return def, nil
}

func newSubscribeCommand(env envFunc) *cobra.Command {
	var (
		force  bool
		fields []string
		parent string
		rules  []string
	)

	cmd := &cobra.Command{
		Use:   "events:subscribe <event-code>",
		Short: "Subscribe to an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

			def, err := subscriptionDefinition(args[0], fields, parent, rules)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			api, err := a.managementAPI()
			if err != nil {
				return err
			}

			subscriber := subscription.NewSubscriber(a.subscribeValidator(), api, a.store, a.catalog, logger)
			if err := subscriber.Subscribe(ctx, def, force); err != nil {
				if errors.Is(err, subscription.ErrNoProvider) {
					return fmt.Errorf("no event provider is configured, please run %s", subscription.CreateProviderCommand)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "The subscription %s was successfully created\n", def.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "passed to the subscribe validators; the supported-event check still applies")
	cmd.Flags().StringArrayVar(&fields, "fields", nil, "a field of the event data payload (repeatable)")
	cmd.Flags().StringVar(&parent, "parent", "", "the parent event code for a subscription with rules")
	cmd.Flags().StringArrayVar(&rules, "rules", nil, fmt.Sprintf("a rule formatted as %q (repeatable)", ruleFormat))
	return cmd
}

func newUnsubscribeCommand(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "events:unsubscribe <event-code>",
		Short: "Remove the subscription to an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			api, err := a.managementAPI()
			if err != nil {
				return err
			}

			def := &events.Definition{Name: strings.ToLower(catalog.RemoveCommercePrefix(args[0]))}
			subscriber := subscription.NewSubscriber(a.subscribeValidator(), api, a.store, a.catalog, logger)
			if err := subscriber.Unsubscribe(ctx, def); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully unsubscribed from the %s event\n", def.Name)
			return nil
		},
	}
}

func newCreateProviderCommand(env envFunc) *cobra.Command {
	var label, description string

	cmd := &cobra.Command{
		Use:     subscription.CreateProviderCommand,
		Aliases: []string{"events:provider:create"},
		Short:   "Create a custom event provider in Adobe I/O Events for this instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			api, err := a.managementAPI()
			if err != nil {
				return err
			}

			provider, err := subscription.CreateProvider(ctx, api, a.store, cfg.InstanceID, ioevents.EventProvider{
				Label:       label,
				Description: description,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "A new event provider has been created with ID %s\n", provider.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "Commerce Events", "a label to define your custom provider")
	cmd.Flags().StringVar(&description, "description", "Commerce events provider", "a description of your provider")
	return cmd
}

func newSyncMetadataCommand(env envFunc) *cobra.Command {
	var deleteStale bool

	cmd := &cobra.Command{
		Use:   "events:sync-events-metadata",
		Short: "Synchronize the event metadata registered for this instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			api, err := a.managementAPI()
			if err != nil {
				return err
			}

			report, err := subscription.NewSynchronizer(api, a.store, a.catalog, logger).Sync(ctx, deleteStale)
			if err != nil {
				if errors.Is(err, subscription.ErrNoProvider) {
					return fmt.Errorf("no event provider is configured, please run %s", subscription.CreateProviderCommand)
				}
				return err
			}
			writeSyncReport(cmd.OutOrStdout(), report, deleteStale)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteStale, "delete", false, "delete registered event metadata that is no longer declared")
	return cmd
}

func writeSyncReport(w io.Writer, report *subscription.SyncReport, deleted bool) {
	fmt.Fprintf(w, "Event provider with ID %s retrieved from configuration\n", report.ProviderID)

	fmt.Fprintln(w, "The following events are declared on your instance:")
	for _, md := range report.Declared {
		fmt.Fprintf(w, "- %s\n", md.EventCode)
	}

	fmt.Fprintln(w, "Updating event types:")
	for _, md := range report.Updated {
		fmt.Fprintf(w, "- [UPDATED] %s\n", md.EventCode)
	}

	if len(report.Stale) == 0 {
		return
	}
	if !deleted {
		fmt.Fprintln(w, "The following event metadata could be deleted, by using --delete option")
		for _, md := range report.Stale {
			fmt.Fprintf(w, "- %s\n", md.EventCode)
		}
		return
	}

	fmt.Fprintln(w, "Delete the following event metadata:")
	for _, md := range report.Deleted {
		fmt.Fprintf(w, "- [DELETED] %s\n", md.EventCode)
	}
	for _, md := range report.Failed {
		fmt.Fprintf(w, "- [FAILURE] %s\n", md.EventCode)
	}
}

func newCheckConfigurationCommand(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "events:check-configuration",
		Short: "Check the Adobe I/O connection and provider configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := env()
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			tokens, err := a.tokenProvider()
			if err != nil {
				return err
			}
			api, err := a.managementAPI()
			if err != nil {
				return err
			}
			providerID, err := a.store.ProviderID()
			if err != nil {
				return err
			}

			status := api.CheckConfiguration(ctx, tokens.KeyConfigured(), providerID)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(status); err != nil {
				return err
			}
			if status.Status != "ok" {
				return errors.New("configuration check failed")
			}
			return nil
		},
	}
}
