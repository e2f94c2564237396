package capture

import (
	"context"
	"log/slog"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Capture topics, one per event type marker.
const (
	TopicObserver = "commerce-observer-events"
	TopicPlugin   = "commerce-plugin-events"
	TopicDefault  = "commerce-events"
)

// Topics lists every topic the capture consumer reads.
var Topics = []string{TopicObserver, TopicPlugin, TopicDefault}

// OccurrencePublisher publishes occurrences to the message bus.
type OccurrencePublisher interface {
	Publish(ctx context.Context, topic string, occ *events.Occurrence) error
}

// Client submits raw event occurrences to the capture consumer.
// It wraps the underlying message bus (Redpanda) to provide a service-level abstraction.
type Client struct {
	publisher OccurrencePublisher
	logger    *slog.Logger
}

// New creates a new capture client.
func New(publisher OccurrencePublisher, logger *slog.Logger) *Client {
	return &Client{
		publisher: publisher,
		logger:    logger.With("client", "capture"),
	}
}

// Emit validates and publishes an occurrence, routed by its type marker.
func (c *Client) Emit(ctx context.Context, code string, data map[string]any) error {
	occ := &events.Occurrence{Code: code, Data: data}
	if err := occ.Validate(); err != nil {
		return err
	}

	topic := topicFromEventCode(code)
	if err := c.publisher.Publish(ctx, topic, occ); err != nil {
		c.logger.Error("failed to emit event",
			"event_code", code,
			"topic", topic,
			"error", err,
		)
		return err
	}

	c.logger.Debug("event emitted", "event_code", code, "topic", topic)
	return nil
}

// topicFromEventCode derives the topic from the code's type marker.
func topicFromEventCode(code string) string {
	kind, _ := events.SplitType(events.StripPrefix(code))
	switch kind {
	case events.TypeObserver:
		return TopicObserver
	case events.TypePlugin:
		return TopicPlugin
	default:
		return TopicDefault
	}
}
