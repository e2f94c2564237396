package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cornjacket/commerce-events/internal/services/storage"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// EventWriter turns an occurrence into stored events.
type EventWriter interface {
	CreateEvent(ctx context.Context, code string, data map[string]any) ([]storage.Outcome, error)
}

// Service handles capture business logic.
type Service struct {
	writer EventWriter
	logger *slog.Logger
}

// NewService creates a new capture service.
func NewService(writer EventWriter, logger *slog.Logger) *Service {
	return &Service{
		writer: writer,
		logger: logger.With("service", "capture"),
	}
}

// CaptureResponse is returned after an occurrence was processed.
type CaptureResponse struct {
	Code   string          `json:"code"`
	Status string          `json:"status"`
	Events []OutcomeReport `json:"events"`
}

// OutcomeReport is one definition's outcome in a CaptureResponse.
type OutcomeReport struct {
	EventCode string `json:"event_code"`
	Result    string `json:"result"`
	ID        int64  `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Capture normalizes payload and hands it to the writer. Per-definition
// failures are reported in the response, not returned.
func (s *Service) Capture(ctx context.Context, code string, payload any) (*CaptureResponse, error) {
	data, err := Normalize(payload)
	if err != nil {
		return nil, err
	}

	occ := &events.Occurrence{Code: code, Data: data}
	if err := occ.Validate(); err != nil {
		return nil, err
	}

	outcomes, err := s.writer.CreateEvent(ctx, occ.Code, occ.Data)
	if err != nil {
		s.logger.Error("failed to create events", "event_code", code, "error", err)
		return nil, fmt.Errorf("failed to create events: %w", err)
	}

	resp := &CaptureResponse{
		Code:   code,
		Status: "accepted",
		Events: make([]OutcomeReport, 0, len(outcomes)),
	}
	created := 0
	for _, o := range outcomes {
		report := OutcomeReport{EventCode: o.EventCode, Result: o.Result.String(), ID: o.ID}
		if o.Err != nil {
			report.Error = o.Err.Error()
		}
		if o.Result == storage.ResultCreated {
			created++
		}
		resp.Events = append(resp.Events, report)
	}

	s.logger.Info("event captured",
		"event_code", code,
		"matched", len(outcomes),
		"created", created,
	)

	return resp, nil
}
