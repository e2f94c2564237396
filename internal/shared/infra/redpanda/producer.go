package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Record headers set on every occurrence.
const (
	HeaderSource      = "source"
	HeaderContentType = "content-type"
)

const defaultSource = "commerce-events"

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	Brokers  []string
	ClientID string
	// Source is written to the source header; defaults to "commerce-events".
	Source string
}

// Producer writes raw occurrences to the capture topics.
type Producer struct {
	client *kgo.Client
	source string
	logger *slog.Logger
}

// NewProducer creates a producer. Topics are created on first write.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.AllowAutoTopicCreation(),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda client: %w", err)
	}

	source := cfg.Source
	if source == "" {
		source = defaultSource
	}

	return &Producer{
		client: client,
		source: source,
		logger: logger.With("component", "redpanda-producer"),
	}, nil
}

// Ping checks that at least one broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("no Redpanda broker reachable: %w", err)
	}
	return nil
}

// Publish writes occ to topic and waits for the broker ack. Records are keyed
// by event code so occurrences of one code stay on one partition.
func (p *Producer) Publish(ctx context.Context, topic string, occ *events.Occurrence) error {
	value, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("failed to marshal occurrence %s: %w", occ.Code, err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(occ.Code),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderSource, Value: []byte(p.source)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", occ.Code, topic, err)
	}

	p.logger.Debug("occurrence published",
		"topic", topic,
		"event_code", occ.Code,
		"partition", record.Partition,
		"offset", record.Offset,
	)
	return nil
}

// Close releases the client.
func (p *Producer) Close() {
	p.client.Close()
	p.logger.Info("Redpanda producer closed")
}

// Header returns the value of the named header on r, or "".
func Header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
