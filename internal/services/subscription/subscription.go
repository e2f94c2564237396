// Package subscription manages dynamic event subscriptions: it records them
// in the deployment config and keeps the event metadata registered with
// Adobe I/O Events in step with the catalog.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// ErrNoProvider is returned when no event provider id is configured.
var ErrNoProvider = fmt.Errorf("%w: no event provider is configured", events.ErrInvalidConfiguration)

// CreateProviderCommand is the command that configures an event provider.
const CreateProviderCommand = "events:create-event-provider"

// MetadataAPI is the subset of the I/O Events management API used here.
type MetadataAPI interface {
	CreateEventProvider(ctx context.Context, instanceID string, provider ioevents.EventProvider) (*ioevents.EventProvider, error)
	CreateEventMetadata(ctx context.Context, providerID string, metadata ioevents.EventMetadata) error
	ListRegisteredEventMetadata(ctx context.Context, providerID string) ([]ioevents.EventMetadata, error)
	DeleteEventMetadata(ctx context.Context, providerID string, metadata ioevents.EventMetadata) (bool, error)
}

// ConfigStore persists subscriptions and the provider id.
type ConfigStore interface {
	IOEvents() (map[string]any, error)
	SetIOEvent(name string, value map[string]any) error
	ProviderID() (string, error)
	SetProviderID(id string) error
}

// Catalog is the merged event list.
type Catalog interface {
	Sorted() ([]*events.Definition, error)
	IsEventEnabled(code string) (bool, error)
	Refresh()
}

// Validator checks a definition before it is subscribed.
type Validator interface {
	Validate(def *events.Definition, force bool) error
}

func providerID(store ConfigStore) (string, error) {
	id, err := store.ProviderID()
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNoProvider
	}
	return id, nil
}

// CreateProvider registers a new event provider for instanceID and stores
// its id. It fails when a provider is already configured.
func CreateProvider(ctx context.Context, api MetadataAPI, store ConfigStore, instanceID string, provider ioevents.EventProvider) (*ioevents.EventProvider, error) {
	existing, err := store.ProviderID()
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return nil, fmt.Errorf("%w: already found an event provider configured with ID %s",
			events.ErrAlreadyExists, existing)
	}
	if instanceID == "" {
		return nil, fmt.Errorf("%w: instance id is required to create an event provider",
			events.ErrInvalidConfiguration)
	}
	if provider.Label == "" {
		return nil, errors.New("provider label is required")
	}

	created, err := api.CreateEventProvider(ctx, instanceID, provider)
	if err != nil {
		return nil, err
	}

	if err := store.SetProviderID(created.ID); err != nil {
		return nil, fmt.Errorf("failed to save provider id %s: %w", created.ID, err)
	}
	return created, nil
}
