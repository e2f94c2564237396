package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/commerce-events/internal/services/storage"
)

func newTestHandler(writer EventWriter, health HealthChecker) *Handler {
	return NewHandler(NewService(writer, slog.Default()), health, slog.Default())
}

func TestHandleCapture_Success(t *testing.T) {
	var captured map[string]any
	writer := &mockEventWriter{
		CreateEventFn: func(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error) {
			captured = data
			return []storage.Outcome{{EventCode: "com.adobe.commerce." + code, Result: storage.ResultCreated, ID: 1}}, nil
		},
	}
	handler := newTestHandler(writer, nil)

	body := `{"code":"observer.sales_order_save_after","data":{"id":"100","total":72.5}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.HandleCapture(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp CaptureResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Status)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, int64(1), resp.Events[0].ID)
	assert.Equal(t, "100", captured["id"])
}

func TestHandleCapture_LargeIntegersKeepPrecision(t *testing.T) {
	var captured map[string]any
	writer := &mockEventWriter{
		CreateEventFn: func(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error) {
			captured = data
			return nil, nil
		},
	}

	body := `{"code":"observer.catalog_product_save_after","data":{"entity_id":9007199254740993,"qty":2,"price":10.25}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	newTestHandler(writer, nil).HandleCapture(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, json.Number("9007199254740993"), captured["entity_id"])
	assert.Equal(t, json.Number("2"), captured["qty"])
	assert.Equal(t, json.Number("10.25"), captured["price"])

	encoded, err := json.Marshal(captured)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"entity_id":9007199254740993`)
}

func TestHandleCapture_BadRequests(t *testing.T) {
	writer := &mockEventWriter{
		CreateEventFn: func(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error) {
			t.Fatal("CreateEvent should not be called for a bad request")
			return nil, nil
		},
	}

	tests := []struct {
		name string
		body string
	}{
		{"bad JSON", `{not json`},
		{"missing code", `{"data":{"id":1}}`},
		{"missing data", `{"code":"observer.a"}`},
		{"data not an object", `{"code":"observer.a","data":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			newTestHandler(writer, nil).HandleCapture(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleCapture_WriterError(t *testing.T) {
	writer := &mockEventWriter{
		CreateEventFn: func(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error) {
			return nil, errors.New("connection refused")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewBufferString(`{"code":"observer.a","data":{}}`))
	w := httptest.NewRecorder()

	newTestHandler(writer, nil).HandleCapture(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleCapture_RepositoryOutage(t *testing.T) {
	writer := storage.NewWriter(
		fixedDefinitions{{Name: "observer.sales_order_save_after", Enabled: true}},
		allowAll{}, outageRepository{}, allowAll{}, allowAll{}, slog.Default(),
	)

	body := `{"code":"observer.sales_order_save_after","data":{"id":1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	newTestHandler(writer, nil).HandleCapture(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestHandleCapture_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()

	newTestHandler(nil, nil).HandleCapture(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checker", nil, http.StatusOK, "healthy"},
		{"database up", &mockHealthChecker{HealthFn: func(ctx context.Context) error { return nil }}, http.StatusOK, "healthy"},
		{"database down", &mockHealthChecker{HealthFn: func(ctx context.Context) error { return errors.New("down") }}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()

			newTestHandler(nil, tt.health).HandleHealth(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(nil, nil).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
