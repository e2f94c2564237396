package query

import (
	"context"
	"time"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// EventView is a stored event as returned by the Query Service.
type EventView struct {
	ID           int64          `json:"id"`
	EventCode    string         `json:"event_code"`
	Status       string         `json:"status"`
	RetriesCount int            `json:"retries_count"`
	EventData    map[string]any `json:"event_data"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewEventView converts a stored event.
func NewEventView(e *events.StoredEvent) EventView {
	return EventView{
		ID:           e.ID,
		EventCode:    e.EventCode,
		Status:       e.Status.String(),
		RetriesCount: e.RetriesCount,
		EventData:    e.EventData,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// EventList represents a paginated list of stored events.
type EventList struct {
	Events []EventView `json:"events"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// EventRepository defines read operations for stored events.
type EventRepository interface {
	// GetByID returns events.ErrNotFound when no event has the id.
	GetByID(ctx context.Context, id int64) (*events.StoredEvent, error)

	// ListPage retrieves events with the status, newest first.
	// Returns the events, total count, and any error.
	ListPage(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error)
}
