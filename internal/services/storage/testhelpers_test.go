package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// mockEventRepository implements EventRepository for testing.
type mockEventRepository struct {
	GetByIDFn      func(ctx context.Context, id int64) (*events.StoredEvent, error)
	SaveFn         func(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error)
	ListByStatusFn func(ctx context.Context, status events.Status) ([]*events.StoredEvent, error)
}

func (m *mockEventRepository) GetByID(ctx context.Context, id int64) (*events.StoredEvent, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockEventRepository) Save(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	return m.SaveFn(ctx, event)
}

func (m *mockEventRepository) ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error) {
	return m.ListByStatusFn(ctx, status)
}

// memRepository is an in-memory EventRepository keyed by id.
type memRepository struct {
	rows   map[int64]*events.StoredEvent
	nextID int64
}

func newMemRepository() *memRepository {
	return &memRepository{rows: map[int64]*events.StoredEvent{}}
}

func (r *memRepository) GetByID(ctx context.Context, id int64) (*events.StoredEvent, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("event %d: %w", id, events.ErrNotFound)
	}
	cp := *row
	return &cp, nil
}

func (r *memRepository) Save(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	cp := *event
	if cp.ID == 0 {
		r.nextID++
		cp.ID = r.nextID
	}
	cp.EventData = maps.Clone(cp.EventData)
	r.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepository) ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error) {
	var out []*events.StoredEvent
	for _, row := range r.rows {
		if row.Status == status {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockDefinitionSource implements DefinitionSource for testing.
type mockDefinitionSource struct {
	SortedFn func() ([]*events.Definition, error)
}

func (m *mockDefinitionSource) Sorted() ([]*events.Definition, error) {
	return m.SortedFn()
}

// mockCreateValidator implements CreateValidator for testing.
type mockCreateValidator struct {
	ValidateFn func(def *events.Definition, data map[string]any) (bool, error)
}

func (m *mockCreateValidator) Validate(def *events.Definition, data map[string]any) (bool, error) {
	return m.ValidateFn(def, data)
}

// passFilter returns payloads unchanged.
type passFilter struct{}

func (passFilter) Filter(code string, data map[string]any) (map[string]any, error) {
	return data, nil
}

// fixedMetadata returns a constant metadata map.
type fixedMetadata map[string]any

func (m fixedMetadata) Metadata(ctx context.Context) map[string]any {
	return maps.Clone(m)
}
