package query

import (
	"context"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// mockEventRepo implements EventRepository for testing.
type mockEventRepo struct {
	GetByIDFn  func(ctx context.Context, id int64) (*events.StoredEvent, error)
	ListPageFn func(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error)
}

func (m *mockEventRepo) GetByID(ctx context.Context, id int64) (*events.StoredEvent, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockEventRepo) ListPage(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error) {
	return m.ListPageFn(ctx, status, limit, offset)
}
