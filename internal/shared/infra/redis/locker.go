package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cornjacket/commerce-events/internal/services/delivery"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = goredis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// extendScript resets the TTL only if the lock still holds our token.
var extendScript = goredis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

// Locker is a delivery.Locker shared by every process using the same key.
// The TTL bounds how long a crashed holder blocks others. A live holder
// extends it every third of the TTL.
type Locker struct {
	client goredis.UniversalClient
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewLocker creates a Locker on key.
func NewLocker(client goredis.UniversalClient, key string, ttl time.Duration, logger *slog.Logger) *Locker {
	return &Locker{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.With("component", "redis-locker"),
	}
}

// TryLock implements delivery.Locker.
func (l *Locker) TryLock(ctx context.Context) (context.Context, func(context.Context) error, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, l.key, token.String(), l.ttl).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil, delivery.ErrLockHeld
	}

	l.logger.Debug("lock acquired", "key", l.key)

	held, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go l.keepAlive(held, cancel, token.String(), done)

	return held, func(ctx context.Context) error {
		cancel(nil)
		<-done

		n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token.String()).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", l.key, err)
		}
		if n == 0 {
			l.logger.Warn("lock expired before release", "key", l.key, "ttl", l.ttl)
		}
		return nil
	}, nil
}

// keepAlive extends the lock until held is done. It cancels held with
// delivery.ErrLockLost once the key no longer carries token.
func (l *Locker) keepAlive(held context.Context, cancel context.CancelCauseFunc, token string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-held.Done():
			return
		case <-ticker.C:
		}

		n, err := extendScript.Run(held, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
		if err != nil {
			if held.Err() != nil {
				return
			}
			// The key keeps its remaining TTL; the next tick tries again.
			l.logger.Warn("failed to extend lock", "key", l.key, "error", err)
			continue
		}
		if n == 0 {
			l.logger.Error("lock lost, stopping sender", "key", l.key)
			cancel(delivery.ErrLockLost)
			return
		}
	}
}
