package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Service handles query business logic.
type Service struct {
	repo   EventRepository
	logger *slog.Logger
}

// NewService creates a new query service.
func NewService(repo EventRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("service", "query"),
	}
}

// GetEvent retrieves a stored event by id.
func (s *Service) GetEvent(ctx context.Context, id int64) (*EventView, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, events.ErrNotFound) {
			s.logger.Error("failed to get event", "event_id", id, "error", err)
		}
		return nil, err
	}

	view := NewEventView(event)
	return &view, nil
}

// ListEvents retrieves stored events by status name with pagination.
func (s *Service) ListEvents(ctx context.Context, statusName string, limit, offset int) (*EventList, error) {
	status, ok := events.ParseStatus(statusName)
	if !ok {
		return nil, fmt.Errorf("%w: invalid status: %s", events.ErrValidation, statusName)
	}

	// Apply defaults and limits
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	stored, total, err := s.repo.ListPage(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list events",
			"status", statusName,
			"limit", limit,
			"offset", offset,
			"error", err,
		)
		return nil, err
	}

	views := make([]EventView, 0, len(stored))
	for _, e := range stored {
		views = append(views, NewEventView(e))
	}

	return &EventList{
		Events: views,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
