// Package storage turns raw domain event occurrences into stored events and
// tracks their delivery status.
package storage

import (
	"context"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// EventRepository persists stored events.
type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*events.StoredEvent, error)
	// Save inserts the event when its ID is zero and updates it otherwise.
	// Inserts return events.ErrAlreadyExists on a duplicate row.
	Save(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error)
	ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error)
}

// DefinitionSource lists catalog definitions in a stable order.
type DefinitionSource interface {
	Sorted() ([]*events.Definition, error)
}

// CreateValidator decides whether a definition produces an event for a payload.
type CreateValidator interface {
	Validate(def *events.Definition, data map[string]any) (bool, error)
}

// DataFilter projects a payload to the fields configured for an event code.
type DataFilter interface {
	Filter(code string, data map[string]any) (map[string]any, error)
}

// MetadataSource provides the metadata stamped onto every stored event.
type MetadataSource interface {
	Metadata(ctx context.Context) map[string]any
}
