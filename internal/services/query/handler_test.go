package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

func TestHandleGetEvent_Success(t *testing.T) {
	mock := &mockEventRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*events.StoredEvent, error) {
			return newTestEvent(id), nil
		},
	}
	handler := NewHandler(NewService(mock, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/42", nil)
	w := httptest.NewRecorder()

	handler.HandleGetEvent(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp EventView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "com.adobe.commerce.observer.sales_order_save_after", resp.EventCode)
	assert.Equal(t, "failure", resp.Status)
}

func TestHandleGetEvent_NotFound(t *testing.T) {
	mock := &mockEventRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*events.StoredEvent, error) {
			return nil, fmt.Errorf("%w: event %d", events.ErrNotFound, id)
		},
	}
	handler := NewHandler(NewService(mock, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/999", nil)
	w := httptest.NewRecorder()

	handler.HandleGetEvent(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetEvent_RepositoryError(t *testing.T) {
	mock := &mockEventRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*events.StoredEvent, error) {
			return nil, errors.New("connection refused")
		},
	}
	handler := NewHandler(NewService(mock, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil)
	w := httptest.NewRecorder()

	handler.HandleGetEvent(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleGetEvent_BadID(t *testing.T) {
	handler := NewHandler(NewService(nil, slog.Default()), slog.Default())

	tests := []struct {
		name string
		path string
	}{
		{"empty", "/api/v1/events/"},
		{"not a number", "/api/v1/events/abc"},
		{"zero", "/api/v1/events/0"},
		{"extra segment", "/api/v1/events/1/extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			handler.HandleGetEvent(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleGetEvent_MethodNotAllowed(t *testing.T) {
	handler := NewHandler(NewService(nil, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/1", nil)
	w := httptest.NewRecorder()

	handler.HandleGetEvent(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleListEvents_DefaultsToWaiting(t *testing.T) {
	var gotStatus events.Status = -1
	mock := &mockEventRepo{
		ListPageFn: func(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error) {
			gotStatus = status
			return []*events.StoredEvent{newTestEvent(1)}, 1, nil
		},
	}
	handler := NewHandler(NewService(mock, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()

	handler.HandleListEvents(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, events.StatusWaiting, gotStatus)

	var resp EventList
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Total)
	assert.Len(t, resp.Events, 1)
}

func TestHandleListEvents_PaginationParams(t *testing.T) {
	var capturedLimit, capturedOffset int
	mock := &mockEventRepo{
		ListPageFn: func(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error) {
			capturedLimit = limit
			capturedOffset = offset
			return nil, 0, nil
		},
	}
	handler := NewHandler(NewService(mock, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?status=success&limit=50&offset=25", nil)
	w := httptest.NewRecorder()

	handler.HandleListEvents(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, capturedLimit)
	assert.Equal(t, 25, capturedOffset)
}

func TestHandleListEvents_InvalidStatus(t *testing.T) {
	handler := NewHandler(NewService(nil, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?status=pending", nil)
	w := httptest.NewRecorder()

	handler.HandleListEvents(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes(t *testing.T) {
	mock := &mockEventRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*events.StoredEvent, error) {
			return newTestEvent(id), nil
		},
		ListPageFn: func(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error) {
			return nil, 0, nil
		},
	}
	handler := NewHandler(NewService(mock, slog.Default()), slog.Default())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	for _, path := range []string{"/health", "/api/v1/events", "/api/v1/events/5"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/5", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleHealth_Query(t *testing.T) {
	handler := NewHandler(NewService(nil, slog.Default()), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp["status"])
}
