package delivery

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockEventLister struct {
	ListByStatusFn func(ctx context.Context, status events.Status) ([]*events.StoredEvent, error)
}

func (m *mockEventLister) ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status)
	}
	return nil, nil
}

type mockBatchClient struct {
	SendBatchFn func(ctx context.Context, messages []events.Message) (*ioevents.BatchResponse, error)
	calls       [][]events.Message
}

func (m *mockBatchClient) SendBatch(ctx context.Context, messages []events.Message) (*ioevents.BatchResponse, error) {
	m.calls = append(m.calls, messages)
	if m.SendBatchFn != nil {
		return m.SendBatchFn(ctx, messages)
	}
	return &ioevents.BatchResponse{StatusCode: 200, Reason: "OK"}, nil
}

// statusTable is an in-memory stored event table implementing both
// WaitingSource and StatusWriter with the writer's retry accounting.
type statusTable struct {
	mu      sync.Mutex
	rows    map[int64]*events.StoredEvent
	history map[int64][]events.Status
}

func newStatusTable(ids ...int64) *statusTable {
	t := &statusTable{rows: map[int64]*events.StoredEvent{}, history: map[int64][]events.Status{}}
	for _, id := range ids {
		t.rows[id] = &events.StoredEvent{
			ID:        id,
			EventCode: "com.adobe.commerce.observer.test",
			EventData: map[string]any{"id": id},
			Metadata:  map[string]any{},
			Status:    events.StatusWaiting,
		}
	}
	return t
}

func (t *statusTable) WaitingEvents(ctx context.Context) ([]Pending, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Pending
	for _, e := range t.rows {
		if e.Status != events.StatusWaiting {
			continue
		}
		p, err := NewPending(e.ID, e.Message())
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *statusTable) UpdateStatus(ctx context.Context, ids []int64, status events.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.rows[id].Status = status
		t.history[id] = append(t.history[id], status)
	}
	return nil
}

func (t *statusTable) UpdateFailure(ctx context.Context, ids []int64, maxRetries int) ([]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var failed []int64
	for _, id := range ids {
		row := t.rows[id]
		if row.RetriesCount+1 > maxRetries {
			row.Status = events.StatusFailure
			failed = append(failed, id)
		} else {
			row.Status = events.StatusWaiting
			row.RetriesCount++
		}
		t.history[id] = append(t.history[id], row.Status)
	}
	return failed, nil
}

func (t *statusTable) row(id int64) events.StoredEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.rows[id]
}

// memEventRepository implements storage.EventRepository and EventLister over
// a map so a real storage.Writer can drive the rows.
type memEventRepository struct {
	mu      sync.Mutex
	rows    map[int64]events.StoredEvent
	history map[int64][]events.Status
}

func newMemEventRepository(rows ...events.StoredEvent) *memEventRepository {
	r := &memEventRepository{rows: map[int64]events.StoredEvent{}, history: map[int64][]events.Status{}}
	for _, row := range rows {
		r.rows[row.ID] = row
	}
	return r
}

func (r *memEventRepository) GetByID(ctx context.Context, id int64) (*events.StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	return &row, nil
}

func (r *memEventRepository) Save(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == 0 {
		event.ID = int64(len(r.rows) + 1)
	}
	r.rows[event.ID] = *event
	r.history[event.ID] = append(r.history[event.ID], event.Status)
	saved := *event
	return &saved, nil
}

func (r *memEventRepository) ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.StoredEvent
	for _, row := range r.rows {
		if row.Status == status {
			row := row
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *memEventRepository) row(id int64) events.StoredEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

type mockJob struct {
	RunFn func(ctx context.Context) error
	mu    sync.Mutex
	runs  int
}

func (m *mockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
	if m.RunFn != nil {
		return m.RunFn(ctx)
	}
	return nil
}

func (m *mockJob) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// mockLocker hands out a held context that lose cancels with ErrLockLost.
type mockLocker struct {
	cancel   context.CancelCauseFunc
	released bool
}

func (m *mockLocker) TryLock(ctx context.Context) (context.Context, func(context.Context) error, error) {
	held, cancel := context.WithCancelCause(ctx)
	m.cancel = cancel
	return held, func(context.Context) error {
		m.released = true
		cancel(nil)
		return nil
	}, nil
}

func (m *mockLocker) lose() {
	m.cancel(ErrLockLost)
}

type chanNotifier struct {
	ch chan struct{}
}

func (n *chanNotifier) Notifications(ctx context.Context) <-chan struct{} {
	return n.ch
}
