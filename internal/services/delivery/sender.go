package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// WaitingSource provides the working set for a run.
type WaitingSource interface {
	WaitingEvents(ctx context.Context) ([]Pending, error)
}

// StatusWriter updates stored event status.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, ids []int64, status events.Status) error
	UpdateFailure(ctx context.Context, ids []int64, maxRetries int) ([]int64, error)
}

// BatchClient publishes a batch of messages.
type BatchClient interface {
	SendBatch(ctx context.Context, messages []events.Message) (*ioevents.BatchResponse, error)
}

// SenderConfig holds configuration for the sender.
type SenderConfig struct {
	MaxRetries int
}

// Sender drains waiting events in batches until none are left.
type Sender struct {
	retriever WaitingSource
	generator *BatchGenerator
	writer    StatusWriter
	client    BatchClient
	config    SenderConfig
	logger    *slog.Logger
}

// NewSender creates a new Sender.
func NewSender(
	retriever WaitingSource,
	generator *BatchGenerator,
	writer StatusWriter,
	client BatchClient,
	config SenderConfig,
	logger *slog.Logger,
) *Sender {
	return &Sender{
		retriever: retriever,
		generator: generator,
		writer:    writer,
		client:    client,
		config:    config,
		logger:    logger.With("component", "batch-sender"),
	}
}

// Run sends every waiting event. Delivery failures are recorded on the rows
// and never returned; only storage errors and context cancellation are.
// At most one Run may be active at a time; see Runner.
func (s *Sender) Run(ctx context.Context) error {
	pending, err := s.retriever.WaitingEvents(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	s.logger.Info("sending waiting events", "count", len(pending))

	for iteration := 1; len(pending) > 0; iteration++ {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("send run interrupted", "remaining", len(pending), "error", err)
			return err
		}

		batch := s.generator.Generate(pending)
		if len(batch) == 0 {
			// The head event alone is over the byte limit and can never be sent.
			head := pending[0]
			s.logger.Error("event exceeds the batch size limit",
				"event_id", head.ID,
				"size", head.Size,
			)
			if err := s.writer.UpdateStatus(ctx, []int64{head.ID}, events.StatusFailure); err != nil {
				return err
			}
			pending = remove(pending, []int64{head.ID})
			continue
		}

		done, err := s.sendBatch(ctx, batch)
		if err != nil {
			return err
		}
		pending = remove(pending, done)

		s.logger.Debug("batch iteration finished",
			"iteration", iteration,
			"batch_size", len(batch),
			"finished", len(done),
			"remaining", len(pending),
		)
	}

	return nil
}

// sendBatch publishes one batch and returns the ids that reached a terminal
// status.
func (s *Sender) sendBatch(ctx context.Context, batch []Pending) ([]int64, error) {
	ids := make([]int64, len(batch))
	messages := make([]events.Message, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
		messages[i] = p.Message
	}

	if err := s.writer.UpdateStatus(ctx, ids, events.StatusSending); err != nil {
		return nil, err
	}

	resp, err := s.client.SendBatch(ctx, messages)

	// Rows are SENDING now; finish the bookkeeping even if ctx is cancelled.
	ctx = context.WithoutCancel(ctx)

	switch {
	case err == nil && resp.StatusCode == http.StatusOK:
		s.logger.Info(fmt.Sprintf("Event data batch of %d events was successfully published.", len(batch)))
		if err := s.writer.UpdateStatus(ctx, ids, events.StatusSuccess); err != nil {
			return nil, err
		}
		return ids, nil

	case err == nil:
		s.logger.Error(fmt.Sprintf("Publishing of batch of %d events failed. Error code: %d; reason: %s %s",
			len(batch), resp.StatusCode, resp.Reason, resp.Body))

	case errors.Is(err, events.ErrInvalidConfiguration):
		s.logger.Error(fmt.Sprintf("Publishing of batch of %d events failed. Configuration is not valid: %s",
			len(batch), err))

	default:
		s.logger.Error(fmt.Sprintf("Publishing of batch of %d events failed: %s", len(batch), err))
	}

	return s.writer.UpdateFailure(ctx, ids, s.config.MaxRetries)
}

func remove(pending []Pending, ids []int64) []Pending {
	if len(ids) == 0 {
		return pending
	}

	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	out := pending[:0:0]
	for _, p := range pending {
		if _, ok := drop[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
