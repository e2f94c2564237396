package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cornjacket/commerce-events/internal/shared/domain/clock"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

const eventColumns = `event_id, event_code, event_data, metadata, status, retries_count, created_at, updated_at`

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool *pgxpool.Pool, logger *slog.Logger) *EventRepo {
	return &EventRepo{
		pool:   pool,
		logger: logger.With("repository", "event_data"),
	}
}

// GetByID returns events.ErrNotFound when no row has the id.
func (r *EventRepo) GetByID(ctx context.Context, id int64) (*events.StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM event_data WHERE event_id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: event %d", events.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return event, nil
}

// Save inserts the event when its ID is zero and updates it otherwise.
func (r *EventRepo) Save(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	if event.ID == 0 {
		return r.insert(ctx, event)
	}
	return r.update(ctx, event)
}

func (r *EventRepo) insert(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	now := clock.Now()
	query := `
		INSERT INTO event_data (event_code, event_data, metadata, status, retries_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + eventColumns

	saved, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.EventCode,
		nonNil(event.EventData),
		nonNil(event.Metadata),
		int16(event.Status),
		event.RetriesCount,
		now,
	))
	if err != nil {
		if isDuplicateError(err) {
			return nil, fmt.Errorf("%w: event %q: %v", events.ErrAlreadyExists, event.EventCode, err)
		}
		return nil, fmt.Errorf("failed to insert into event_data: %w", err)
	}

	r.logger.Debug("event inserted into event_data",
		"event_id", saved.ID,
		"event_code", saved.EventCode,
	)
	return saved, nil
}

func (r *EventRepo) update(ctx context.Context, event *events.StoredEvent) (*events.StoredEvent, error) {
	query := `
		UPDATE event_data
		SET event_code = $2, event_data = $3, metadata = $4, status = $5, retries_count = $6, updated_at = $7
		WHERE event_id = $1
		RETURNING ` + eventColumns

	saved, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.ID,
		event.EventCode,
		nonNil(event.EventData),
		nonNil(event.Metadata),
		int16(event.Status),
		event.RetriesCount,
		clock.Now(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: event %d", events.ErrNotFound, event.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}

	r.logger.Debug("event updated",
		"event_id", saved.ID,
		"status", saved.Status.String(),
		"retries_count", saved.RetriesCount,
	)
	return saved, nil
}

// ListByStatus returns events with the status in ascending id order.
func (r *EventRepo) ListByStatus(ctx context.Context, status events.Status) ([]*events.StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM event_data WHERE status = $1 ORDER BY event_id ASC`

	rows, err := r.pool.Query(ctx, query, int16(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query event_data: %w", err)
	}
	defer rows.Close()

	var out []*events.StoredEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event_data row: %w", err)
		}
		out = append(out, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event_data rows: %w", err)
	}

	return out, nil
}

// ListPage returns one page of events with the status, newest first, and
// the total number of such events.
func (r *EventRepo) ListPage(ctx context.Context, status events.Status, limit, offset int) ([]*events.StoredEvent, int, error) {
	countSQL := `SELECT COUNT(*) FROM event_data WHERE status = $1`
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, int16(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count event_data: %w", err)
	}

	listSQL := `SELECT ` + eventColumns + ` FROM event_data WHERE status = $1
		ORDER BY event_id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, listSQL, int16(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list event_data: %w", err)
	}
	defer rows.Close()

	out := []*events.StoredEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event_data row: %w", err)
		}
		out = append(out, event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating event_data rows: %w", err)
	}

	return out, total, nil
}

func scanEvent(row pgx.Row) (*events.StoredEvent, error) {
	var (
		e      events.StoredEvent
		status int16
		data   []byte
	)
	err := row.Scan(
		&e.ID,
		&e.EventCode,
		&data,
		&e.Metadata,
		&status,
		&e.RetriesCount,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.EventData, err = decodeObject(data); err != nil {
		return nil, fmt.Errorf("failed to decode event_data for event %d: %w", e.ID, err)
	}
	e.Status = events.Status(status)
	return &e, nil
}

// decodeObject keeps numbers as json.Number so integer ids wider than 53 bits
// reach the delivery payload unchanged.
func decodeObject(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(data) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// isDuplicateError checks if the error is a unique constraint violation.
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 is unique_violation
		return pgErr.Code == "23505"
	}
	return false
}
