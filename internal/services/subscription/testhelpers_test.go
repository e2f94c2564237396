package subscription

import (
	"context"
	"io"
	"log/slog"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockAPI implements MetadataAPI for testing. Created and deleted metadata
// are recorded.
type mockAPI struct {
	CreateEventProviderFn func(ctx context.Context, instanceID string, provider ioevents.EventProvider) (*ioevents.EventProvider, error)
	CreateEventMetadataFn func(ctx context.Context, providerID string, metadata ioevents.EventMetadata) error
	ListRegisteredFn      func(ctx context.Context, providerID string) ([]ioevents.EventMetadata, error)
	DeleteEventMetadataFn func(ctx context.Context, providerID string, metadata ioevents.EventMetadata) (bool, error)

	created []ioevents.EventMetadata
	deleted []ioevents.EventMetadata
}

func (m *mockAPI) CreateEventProvider(ctx context.Context, instanceID string, provider ioevents.EventProvider) (*ioevents.EventProvider, error) {
	return m.CreateEventProviderFn(ctx, instanceID, provider)
}

func (m *mockAPI) CreateEventMetadata(ctx context.Context, providerID string, metadata ioevents.EventMetadata) error {
	m.created = append(m.created, metadata)
	if m.CreateEventMetadataFn == nil {
		return nil
	}
	return m.CreateEventMetadataFn(ctx, providerID, metadata)
}

func (m *mockAPI) ListRegisteredEventMetadata(ctx context.Context, providerID string) ([]ioevents.EventMetadata, error) {
	if m.ListRegisteredFn == nil {
		return nil, nil
	}
	return m.ListRegisteredFn(ctx, providerID)
}

func (m *mockAPI) DeleteEventMetadata(ctx context.Context, providerID string, metadata ioevents.EventMetadata) (bool, error) {
	m.deleted = append(m.deleted, metadata)
	if m.DeleteEventMetadataFn == nil {
		return true, nil
	}
	return m.DeleteEventMetadataFn(ctx, providerID, metadata)
}

// memoryStore implements ConfigStore in memory.
type memoryStore struct {
	ioEvents   map[string]any
	providerID string
	setErr     error
}

func newMemoryStore(providerID string) *memoryStore {
	return &memoryStore{ioEvents: map[string]any{}, providerID: providerID}
}

func (s *memoryStore) IOEvents() (map[string]any, error) {
	return s.ioEvents, nil
}

func (s *memoryStore) SetIOEvent(name string, value map[string]any) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.ioEvents[name] = value
	return nil
}

func (s *memoryStore) ProviderID() (string, error) {
	return s.providerID, nil
}

func (s *memoryStore) SetProviderID(id string) error {
	s.providerID = id
	return nil
}

// mockCatalog implements Catalog for testing.
type mockCatalog struct {
	defs      []*events.Definition
	err       error
	refreshes int
}

func (c *mockCatalog) Sorted() ([]*events.Definition, error) {
	return c.defs, c.err
}

func (c *mockCatalog) IsEventEnabled(code string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	for _, def := range c.defs {
		if def.IsBasedOn(code) && def.Enabled {
			return true, nil
		}
	}
	return false, nil
}

func (c *mockCatalog) Refresh() {
	c.refreshes++
}

// mockValidator implements Validator for testing.
type mockValidator struct {
	ValidateFn func(def *events.Definition, force bool) error
}

func (m *mockValidator) Validate(def *events.Definition, force bool) error {
	if m.ValidateFn == nil {
		return nil
	}
	return m.ValidateFn(def, force)
}
