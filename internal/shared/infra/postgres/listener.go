package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// InsertChannel is notified by a trigger whenever an event_data row is inserted.
const InsertChannel = "event_data_insert"

// Listener turns Postgres notifications into wake-up signals. It holds a
// dedicated connection, not one from the pool, because LISTEN keeps the
// connection busy indefinitely.
type Listener struct {
	conn    *pgx.Conn
	channel string
	logger  *slog.Logger
}

// NewListener opens a dedicated connection and subscribes to channel.
func NewListener(ctx context.Context, databaseURL, channel string, logger *slog.Logger) (*Listener, error) {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create LISTEN connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	return &Listener{
		conn:    conn,
		channel: channel,
		logger:  logger.With("component", "pg-listener", "channel", channel),
	}, nil
}

// Notifications delivers a signal per notification until ctx is cancelled,
// then closes the channel. Signals are coalesced while the receiver is busy.
func (l *Listener) Notifications(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			notification, err := l.conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if l.conn.IsClosed() {
					l.logger.Error("LISTEN connection closed", "error", err)
					return
				}
				l.logger.Error("error waiting for notification", "error", err)
				// Brief pause before retrying to avoid tight loop
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			l.logger.Debug("received NOTIFY", "payload", notification.Payload)
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	return ch
}

// Close closes the dedicated connection.
func (l *Listener) Close(ctx context.Context) error {
	err := l.conn.Close(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
