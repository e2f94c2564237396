package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrLockHeld is returned by a Locker when another sender holds the lock.
	ErrLockHeld = errors.New("sender lock is held")
	// ErrLockLost is the cancellation cause of a held context whose lock
	// expired or was taken over while the sender was running.
	ErrLockLost = errors.New("sender lock was lost")
)

// Locker guarantees that at most one Sender runs at a time.
type Locker interface {
	// TryLock acquires the lock without waiting. It returns ErrLockHeld when
	// the lock is taken. Otherwise it returns held, a child of ctx that is
	// cancelled with ErrLockLost if the lock is lost, and a release function.
	TryLock(ctx context.Context) (held context.Context, release func(context.Context) error, err error)
}

// LocalLocker is a Locker for a single process. Its lock is never lost.
type LocalLocker struct {
	mu sync.Mutex
}

// TryLock implements Locker.
func (l *LocalLocker) TryLock(ctx context.Context) (context.Context, func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, nil, ErrLockHeld
	}
	held, cancel := context.WithCancel(ctx)
	return held, func(context.Context) error {
		cancel()
		l.mu.Unlock()
		return nil
	}, nil
}

// Job is one send pass. Sender implements it.
type Job interface {
	Run(ctx context.Context) error
}

// Notifier signals that new events were stored.
type Notifier interface {
	Notifications(ctx context.Context) <-chan struct{}
}

// RunnerConfig holds configuration for the runner.
type RunnerConfig struct {
	// Interval is the watchdog period between runs when no notification arrives.
	Interval time.Duration
}

// Runner triggers the Sender on notifications and on a watchdog interval,
// under a lock.
type Runner struct {
	job      Job
	locker   Locker
	notifier Notifier
	config   RunnerConfig
	logger   *slog.Logger
}

// NewRunner creates a new Runner. notifier may be nil, in which case the
// runner only polls.
func NewRunner(job Job, locker Locker, notifier Notifier, config RunnerConfig, logger *slog.Logger) *Runner {
	return &Runner{
		job:      job,
		locker:   locker,
		notifier: notifier,
		config:   config,
		logger:   logger.With("component", "send-runner"),
	}
}

// Start runs the sender immediately, then whenever a notification arrives
// or the watchdog fires. It blocks until the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("starting send runner",
		"interval", r.config.Interval,
		"notifications", r.notifier != nil,
	)

	var notifyCh <-chan struct{}
	if r.notifier != nil {
		notifyCh = r.notifier.Notifications(ctx)
	}

	timer := time.NewTimer(r.config.Interval)
	defer timer.Stop()

	r.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("send runner stopped")
			return nil

		case _, ok := <-notifyCh:
			if !ok {
				notifyCh = nil
				continue
			}
			r.logger.Debug("new events stored, running sender")
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			r.runLogged(ctx)
			timer.Reset(r.config.Interval)

		case <-timer.C:
			r.logger.Debug("watchdog timer fired, running sender")
			r.runLogged(ctx)
			timer.Reset(r.config.Interval)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	err := r.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrLockHeld):
		r.logger.Debug("another sender is running, skipping")
	case errors.Is(err, context.Canceled):
	default:
		r.logger.Error("send run failed", "error", err)
	}
}

// RunOnce acquires the lock and runs the sender once. The run is cancelled
// if the lock is lost, and ErrLockLost is returned.
func (r *Runner) RunOnce(ctx context.Context) error {
	held, release, err := r.locker.TryLock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("failed to release sender lock", "error", err)
		}
	}()

	err = r.job.Run(held)
	if errors.Is(context.Cause(held), ErrLockLost) && ctx.Err() == nil {
		return ErrLockLost
	}
	return err
}
