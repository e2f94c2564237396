package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Result is the outcome of saving one definition's event.
type Result int

const (
	// ResultCreated means a row was stored.
	ResultCreated Result = iota
	// ResultSkipped means the event was intentionally not created, because
	// publishing is disabled or a rule did not match.
	ResultSkipped
	// ResultFailed means the definition could not produce a row.
	ResultFailed
)

// String returns the lowercase name of the result.
func (r Result) String() string {
	switch r {
	case ResultCreated:
		return "created"
	case ResultSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome records what happened for one matching definition.
type Outcome struct {
	EventCode string
	Result    Result
	ID        int64
	Err       error
}

// Writer creates stored events and updates their status.
type Writer struct {
	catalog   DefinitionSource
	validator CreateValidator
	repo      EventRepository
	filter    DataFilter
	metadata  MetadataSource
	logger    *slog.Logger
}

// NewWriter creates a new Writer.
func NewWriter(
	catalog DefinitionSource,
	validator CreateValidator,
	repo EventRepository,
	filter DataFilter,
	metadata MetadataSource,
	logger *slog.Logger,
) *Writer {
	return &Writer{
		catalog:   catalog,
		validator: validator,
		repo:      repo,
		filter:    filter,
		metadata:  metadata,
		logger:    logger.With("component", "storage-writer"),
	}
}

// CreateEvent saves one event for every enabled definition based on code.
// Validator, operator and already-exists failures are recorded in the
// definition's Outcome and never prevent its siblings from being saved. Any
// other error, such as the database being unreachable, stops the fan-out and
// is returned with the outcomes gathered so far.
func (w *Writer) CreateEvent(ctx context.Context, code string, data map[string]any) ([]Outcome, error) {
	code = events.StripPrefix(code)

	defs, err := w.catalog.Sorted()
	if err != nil {
		return nil, fmt.Errorf("failed to load event catalog: %w", err)
	}

	var outcomes []Outcome
	for _, def := range defs {
		if !def.Enabled || !def.IsBasedOn(code) {
			continue
		}
		outcome, err := w.saveEvent(ctx, def, data)
		if err != nil {
			return outcomes, fmt.Errorf("failed to create event %q: %w", outcome.EventCode, err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (w *Writer) saveEvent(ctx context.Context, def *events.Definition, data map[string]any) (Outcome, error) {
	code := events.WithPrefix(def.Name)
	outcome := Outcome{EventCode: code}

	id, err := w.save(ctx, code, def, data)
	switch {
	case err == nil && id == 0:
		outcome.Result = ResultSkipped
		w.logger.Debug("event skipped", "event_code", code)
	case err == nil:
		outcome.Result = ResultCreated
		outcome.ID = id
		w.logger.Debug("event created", "event_code", code, "event_id", id)
	case errors.Is(err, events.ErrOperator):
		outcome.Result = ResultFailed
		outcome.Err = err
		w.logger.Error(fmt.Sprintf("Could not check that event %q passed the rule, error: %s", code, err),
			"event_code", code)
	case errors.Is(err, events.ErrValidation), errors.Is(err, events.ErrAlreadyExists):
		outcome.Result = ResultFailed
		outcome.Err = err
		w.logger.Error(fmt.Sprintf("Could not create event %q: %s", code, err),
			"event_code", code)
	default:
		return outcome, err
	}
	return outcome, nil
}

// save returns the new row id, or zero when the event was skipped.
func (w *Writer) save(ctx context.Context, code string, def *events.Definition, data map[string]any) (int64, error) {
	ok, err := w.validator.Validate(def, data)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	filtered, err := w.filter.Filter(code, data)
	if err != nil {
		return 0, err
	}

	stored, err := w.repo.Save(ctx, &events.StoredEvent{
		EventCode: code,
		EventData: filtered,
		Metadata:  w.metadata.Metadata(ctx),
		Status:    events.StatusWaiting,
	})
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

// UpdateStatus sets status on each id, one row at a time. The first error
// stops processing and is returned.
func (w *Writer) UpdateStatus(ctx context.Context, ids []int64, status events.Status) error {
	for _, id := range ids {
		stored, err := w.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load event %d: %w", id, err)
		}

		stored.Status = status
		if _, err := w.repo.Save(ctx, stored); err != nil {
			return fmt.Errorf("failed to update event %d: %w", id, err)
		}
	}
	return nil
}

// UpdateFailure records a failed delivery attempt for each id. Rows whose
// retry count would exceed maxRetries become FAILURE and their ids are
// returned; the rest go back to WAITING with the incremented count.
func (w *Writer) UpdateFailure(ctx context.Context, ids []int64, maxRetries int) ([]int64, error) {
	var failed []int64

	for _, id := range ids {
		stored, err := w.repo.GetByID(ctx, id)
		if err != nil {
			return failed, fmt.Errorf("failed to load event %d: %w", id, err)
		}

		retries := stored.RetriesCount + 1
		if retries > maxRetries {
			stored.Status = events.StatusFailure
			failed = append(failed, id)
		} else {
			stored.Status = events.StatusWaiting
			stored.RetriesCount = retries
		}

		if _, err := w.repo.Save(ctx, stored); err != nil {
			return failed, fmt.Errorf("failed to update event %d: %w", id, err)
		}
	}

	return failed, nil
}
