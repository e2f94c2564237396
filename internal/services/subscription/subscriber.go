package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Subscriber adds and removes dynamic event subscriptions.
type Subscriber struct {
	validator Validator
	api       MetadataAPI
	store     ConfigStore
	catalog   Catalog
	logger    *slog.Logger
}

// NewSubscriber creates a new Subscriber.
func NewSubscriber(validator Validator, api MetadataAPI, store ConfigStore, catalog Catalog, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		validator: validator,
		api:       api,
		store:     store,
		catalog:   catalog,
		logger:    logger.With("service", "subscription"),
	}
}

// Subscribe validates def, registers its metadata and writes it to the
// io_events section as an enabled subscription.
func (s *Subscriber) Subscribe(ctx context.Context, def *events.Definition, force bool) error {
	if err := s.validator.Validate(def, force); err != nil {
		return err
	}

	provider, err := providerID(s.store)
	if err != nil {
		return err
	}

	if err := s.api.CreateEventMetadata(ctx, provider, ioevents.MetadataFor(events.WithPrefix(def.Name))); err != nil {
		return fmt.Errorf("failed to register metadata for %s: %w", def.Name, err)
	}

	if err := s.store.SetIOEvent(def.Name, subscriptionConfig(def)); err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", def.Name, err)
	}
	s.catalog.Refresh()

	s.logger.Info("event subscription was added", "event_code", def.Name)
	return nil
}

// Unsubscribe removes the registered metadata for def and marks its
// subscription disabled. Other stored settings of the subscription are kept.
func (s *Subscriber) Unsubscribe(ctx context.Context, def *events.Definition) error {
	enabled, err := s.catalog.IsEventEnabled(def.Name)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("%w: the %q event is not subscribed", events.ErrValidation, def.Name)
	}

	provider, err := providerID(s.store)
	if err != nil {
		return err
	}

	if _, err := s.api.DeleteEventMetadata(ctx, provider, ioevents.MetadataFor(events.WithPrefix(def.Name))); err != nil {
		return fmt.Errorf("failed to delete metadata for %s: %w", def.Name, err)
	}

	current, err := s.store.IOEvents()
	if err != nil {
		return err
	}
	value := map[string]any{}
	if existing, ok := current[def.Name].(map[string]any); ok {
		for k, v := range existing {
			value[k] = v
		}
	}
	value["enabled"] = 0

	if err := s.store.SetIOEvent(def.Name, value); err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", def.Name, err)
	}
	s.catalog.Refresh()

	s.logger.Info("subscription to event was removed", "event_code", def.Name)
	return nil
}

func subscriptionConfig(def *events.Definition) map[string]any {
	fields := make([]any, 0, len(def.Fields))
	for _, f := range def.Fields {
		fields = append(fields, f)
	}

	value := map[string]any{
		"fields":  fields,
		"enabled": 1,
	}
	if len(def.Rules) > 0 {
		rules := make([]any, 0, len(def.Rules))
		for _, r := range def.Rules {
			rules = append(rules, map[string]any{
				"field":    r.Field,
				"operator": r.Operator,
				"value":    r.Value,
			})
		}
		value["rules"] = rules
	}
	if def.Parent != "" {
		value["parent"] = def.Parent
	}
	return value
}
