package capture

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
	"github.com/cornjacket/commerce-events/internal/shared/infra/redpanda"
)

const defaultRetryBackoff = time.Second

// ConsumerConfig holds configuration for the occurrence consumer.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// RetryBackoff is the pause before a partition is read again after a
	// capture failed on infrastructure. Defaults to one second.
	RetryBackoff time.Duration
}

// recordResult is what happened to one consumed record.
type recordResult int

const (
	recordCaptured recordResult = iota
	// recordSkipped is a record that can never be captured. Its offset is
	// committed so it is not redelivered.
	recordSkipped
	// recordRetry is a record whose capture failed on storage. Its partition
	// is rewound to it and nothing past it is committed.
	recordRetry
)

// Consumer reads occurrences from the capture topics. Offsets are committed
// only up to the last record that was captured or rejected as malformed.
type Consumer struct {
	client  *kgo.Client
	service *Service
	config  ConsumerConfig
	logger  *slog.Logger

	captured atomic.Int64
	skipped  atomic.Int64
	retried  atomic.Int64
}

// NewConsumer creates a new occurrence consumer.
func NewConsumer(service *Service, config ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaultRetryBackoff
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(config.Brokers...),
		kgo.ConsumerGroup(config.GroupID),
		kgo.ConsumeTopics(config.Topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		client:  client,
		service: service,
		config:  config,
		logger:  logger.With("component", "capture-consumer"),
	}, nil
}

// Start polls until ctx is cancelled or the client is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting capture consumer",
		"group_id", c.config.GroupID,
		"topics", c.config.Topics,
	)
	defer func() {
		c.logger.Info("capture consumer stopping",
			"captured", c.captured.Load(),
			"skipped", c.skipped.Load(),
			"retried", c.retried.Load(),
		)
	}()

	for ctx.Err() == nil {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				c.logger.Error("fetch error", "topic", topic, "partition", partition, "error", err)
			}
		})

		var (
			handled []*kgo.Record
			rewind  = map[string]map[int32]kgo.EpochOffset{}
		)
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			done, retry := c.processPartition(ctx, p.Records)
			handled = append(handled, done...)
			if retry != nil {
				if rewind[retry.Topic] == nil {
					rewind[retry.Topic] = map[int32]kgo.EpochOffset{}
				}
				rewind[retry.Topic][retry.Partition] = kgo.EpochOffset{
					Epoch:  retry.LeaderEpoch,
					Offset: retry.Offset,
				}
			}
		})

		if len(rewind) > 0 {
			c.client.SetOffsets(rewind)
		}

		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil && ctx.Err() == nil {
				c.logger.Error("failed to commit offsets", "error", err)
			}
		}

		if len(rewind) > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.config.RetryBackoff):
			}
		}
	}
	return nil
}

// processPartition captures records in offset order. It stops at the first
// record that must be retried and returns it alongside the records handled
// before it.
func (c *Consumer) processPartition(ctx context.Context, records []*kgo.Record) ([]*kgo.Record, *kgo.Record) {
	handled := make([]*kgo.Record, 0, len(records))
	for _, record := range records {
		switch c.processRecord(ctx, record) {
		case recordCaptured:
			c.captured.Add(1)
		case recordSkipped:
			c.skipped.Add(1)
		case recordRetry:
			c.retried.Add(1)
			return handled, record
		}
		handled = append(handled, record)
	}
	return handled, nil
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) recordResult {
	logger := c.logger.With(
		"topic", record.Topic,
		"partition", record.Partition,
		"offset", record.Offset,
	)
	if source := redpanda.Header(record, redpanda.HeaderSource); source != "" {
		logger = logger.With("source", source)
	}

	if ct := redpanda.Header(record, redpanda.HeaderContentType); ct != "" && !strings.HasPrefix(ct, "application/json") {
		logger.Warn("skipping record with unsupported content type", "content_type", ct)
		return recordSkipped
	}

	occ, err := events.DecodeOccurrence(record.Value)
	if err != nil {
		logger.Error("failed to deserialize occurrence", "error", err)
		return recordSkipped
	}

	if err := occ.Validate(); err != nil {
		logger.Error("invalid occurrence", "error", err)
		return recordSkipped
	}

	resp, err := c.service.Capture(ctx, occ.Code, occ.Data)
	if err != nil {
		if errors.Is(err, events.ErrValidation) {
			logger.Error("invalid occurrence", "event_code", occ.Code, "error", err)
			return recordSkipped
		}
		logger.Error("failed to capture occurrence, will retry", "event_code", occ.Code, "error", err)
		return recordRetry
	}

	logger.Debug("occurrence captured", "event_code", occ.Code, "matched", len(resp.Events))
	return recordCaptured
}

// Close releases consumer resources.
func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}
