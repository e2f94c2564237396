// Package delivery relays waiting stored events to the publish endpoint.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Pending is a waiting stored event in its outbound shape.
type Pending struct {
	ID      int64
	Message events.Message
	// Size is the length of the JSON-encoded message in bytes.
	Size int
}

// NewPending builds a Pending and measures its encoded size.
func NewPending(id int64, msg events.Message) (Pending, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return Pending{}, fmt.Errorf("failed to encode event %d: %w", id, err)
	}
	return Pending{ID: id, Message: msg, Size: len(data)}, nil
}

// EventLister lists stored events by status.
type EventLister interface {
	ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error)
}

// Retriever loads waiting events.
type Retriever struct {
	repo EventLister
}

// NewRetriever creates a new Retriever.
func NewRetriever(repo EventLister) *Retriever {
	return &Retriever{repo: repo}
}

// WaitingEvents returns every WAITING event ordered by ascending id.
func (r *Retriever) WaitingEvents(ctx context.Context) ([]Pending, error) {
	stored, err := r.repo.ListByStatus(ctx, events.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting events: %w", err)
	}

	pending := make([]Pending, 0, len(stored))
	for _, e := range stored {
		p, err := NewPending(e.ID, e.Message())
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}
