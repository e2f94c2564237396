package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	CaptureURL string
	QueryURL   string
}

// CaptureRequest represents a request to the capture API.
type CaptureRequest struct {
	Code string         `json:"code"`
	Data map[string]any `json:"data"`
}

// Outcome is one definition's result in a CaptureResponse.
type Outcome struct {
	EventCode string `json:"event_code"`
	Result    string `json:"result"`
	ID        int64  `json:"id"`
	Error     string `json:"error"`
}

// CaptureResponse represents the response from the capture API.
type CaptureResponse struct {
	Code   string    `json:"code"`
	Status string    `json:"status"`
	Events []Outcome `json:"events"`
}

// Created returns the ids of the stored events the capture created.
func (r *CaptureResponse) Created() []int64 {
	var ids []int64
	for _, o := range r.Events {
		if o.Result == "created" {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Event represents a stored event from the query API.
type Event struct {
	ID           int64          `json:"id"`
	EventCode    string         `json:"event_code"`
	Status       string         `json:"status"`
	RetriesCount int            `json:"retries_count"`
	EventData    map[string]any `json:"event_data"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// EventList represents a list of stored events from the query API.
type EventList struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UniqueID generates a unique ID for test isolation.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CaptureEvent posts an occurrence to the capture API.
func CaptureEvent(ctx context.Context, cfg *Config, req *CaptureRequest) (*CaptureResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.CaptureURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, status, err := do(httpReq)
	if err != nil {
		return nil, err
	}

	if status != http.StatusAccepted {
		return nil, statusError(status, respBody)
	}

	var captureResp CaptureResponse
	if err := json.Unmarshal(respBody, &captureResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &captureResp, nil
}

// GetEvent retrieves a stored event from the query API. It returns nil
// without error when the event does not exist.
func GetEvent(ctx context.Context, cfg *Config, id int64) (*Event, error) {
	url := fmt.Sprintf("%s/api/v1/events/%d", cfg.QueryURL, id)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respBody, status, err := do(httpReq)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, nil // Not found is not an error
	}

	if status != http.StatusOK {
		return nil, statusError(status, respBody)
	}

	var event Event
	if err := json.Unmarshal(respBody, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &event, nil
}

// ListEvents retrieves stored events with the status from the query API.
func ListEvents(ctx context.Context, cfg *Config, status string, limit, offset int) (*EventList, error) {
	url := fmt.Sprintf("%s/api/v1/events?status=%s&limit=%d&offset=%d", cfg.QueryURL, status, limit, offset)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respBody, code, err := do(httpReq)
	if err != nil {
		return nil, err
	}

	if code != http.StatusOK {
		return nil, statusError(code, respBody)
	}

	var list EventList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &list, nil
}

// WaitForDelivery polls a stored event until the sender has either
// published it or given up on it.
func WaitForDelivery(ctx context.Context, cfg *Config, id int64, timeout time.Duration) (*Event, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		event, err := GetEvent(ctx, cfg, id)
		if err != nil {
			return nil, err
		}
		if event != nil && (event.Status == "success" || event.Status == "failure") {
			return event, nil
		}

		time.Sleep(250 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for delivery of event %d", id)
}

// CheckHealth checks the health endpoint of a service.
func CheckHealth(ctx context.Context, url string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	return nil
}

func do(req *http.Request) ([]byte, int, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func statusError(status int, body []byte) error {
	var errResp ErrorResponse
	json.Unmarshal(body, &errResp)
	return fmt.Errorf("unexpected status %d: %s", status, errResp.Error)
}
