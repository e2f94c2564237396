package capture

import (
	"context"
	"errors"

	"github.com/cornjacket/commerce-events/internal/services/storage"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// mockEventWriter implements EventWriter for testing.
type mockEventWriter struct {
	CreateEventFn func(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error)
}

func (m *mockEventWriter) CreateEvent(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error) {
	return m.CreateEventFn(ctx, code, data)
}

type mockHealthChecker struct {
	HealthFn func(ctx context.Context) error
}

func (m *mockHealthChecker) Health(ctx context.Context) error {
	return m.HealthFn(ctx)
}

// outageRepository implements storage.EventRepository with a database that
// refuses every call.
type outageRepository struct{}

func (outageRepository) GetByID(ctx context.Context, id int64) (*events.StoredEvent, error) {
	return nil, errors.New("connection refused")
}

func (outageRepository) Save(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	return nil, errors.New("connection refused")
}

func (outageRepository) ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error) {
	return nil, errors.New("connection refused")
}

type fixedDefinitions []*events.Definition

func (f fixedDefinitions) Sorted() ([]*events.Definition, error) { return f, nil }

type allowAll struct{}

func (allowAll) Validate(*events.Definition, map[string]any) (bool, error) { return true, nil }

func (allowAll) Filter(code string, data map[string]any) (map[string]any, error) { return data, nil }

func (allowAll) Metadata(context.Context) map[string]any { return map[string]any{} }
