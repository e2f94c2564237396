package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	var l LocalLocker
	ctx := context.Background()

	held, release, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.NoError(t, held.Err())

	_, _, err = l.TryLock(ctx)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release(ctx))
	assert.Error(t, held.Err(), "released lock ends the held context")

	_, release, err = l.TryLock(ctx)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRunner_RunOnce_SkipsWhenLocked(t *testing.T) {
	var l LocalLocker
	_, release, err := l.TryLock(context.Background())
	require.NoError(t, err)
	defer release(context.Background())

	job := &mockJob{}
	r := NewRunner(job, &l, nil, RunnerConfig{Interval: time.Hour}, testLogger())

	err = r.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Equal(t, 0, job.count())
}

func TestRunner_RunOnce_ReleasesLock(t *testing.T) {
	var l LocalLocker
	job := &mockJob{RunFn: func(ctx context.Context) error { return errors.New("boom") }}
	r := NewRunner(job, &l, nil, RunnerConfig{Interval: time.Hour}, testLogger())

	assert.Error(t, r.RunOnce(context.Background()))

	_, release, err := l.TryLock(context.Background())
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}

func TestRunner_RunOnce_StopsWhenLockLost(t *testing.T) {
	locker := &mockLocker{}
	job := &mockJob{RunFn: func(ctx context.Context) error {
		locker.lose()
		<-ctx.Done()
		return ctx.Err()
	}}
	r := NewRunner(job, locker, nil, RunnerConfig{Interval: time.Hour}, testLogger())

	err := r.RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrLockLost)
	assert.Equal(t, 1, job.count())
	assert.True(t, locker.released)
}

func TestRunner_RunOnce_ParentCancelIsNotLockLoss(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &mockJob{RunFn: func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}}
	r := NewRunner(job, &LocalLocker{}, nil, RunnerConfig{Interval: time.Hour}, testLogger())

	err := r.RunOnce(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockLost)
}

func TestRunner_Start_RunsOnNotificationAndWatchdog(t *testing.T) {
	job := &mockJob{}
	notifier := &chanNotifier{ch: make(chan struct{}, 1)}
	r := NewRunner(job, &LocalLocker{}, notifier, RunnerConfig{Interval: 50 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	// initial run
	require.Eventually(t, func() bool { return job.count() >= 1 }, time.Second, 5*time.Millisecond)

	notifier.ch <- struct{}{}
	require.Eventually(t, func() bool { return job.count() >= 2 }, time.Second, 5*time.Millisecond)

	// watchdog keeps firing without notifications
	require.Eventually(t, func() bool { return job.count() >= 4 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_Start_ClosedNotifierFallsBackToPolling(t *testing.T) {
	job := &mockJob{}
	notifier := &chanNotifier{ch: make(chan struct{})}
	close(notifier.ch)
	r := NewRunner(job, &LocalLocker{}, notifier, RunnerConfig{Interval: 20 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	require.Eventually(t, func() bool { return job.count() >= 3 }, time.Second, 5*time.Millisecond)
}
