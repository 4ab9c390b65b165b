package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	acquired   bool
	acquireErr error
	holder     string
	holderErr  error
	releaseErr error
	released   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	return f.acquired, f.acquireErr
}

func (f *fakeLock) Release(context.Context) error {
	f.released++
	return f.releaseErr
}

func (f *fakeLock) Holder(context.Context) (string, error) {
	return f.holder, f.holderErr
}

func TestGuardRunsWhenLockAcquired(t *testing.T) {
	lock := &fakeLock{acquired: true}
	guard, err := NewGuard(lock, nil)
	require.NoError(t, err)

	ran := false
	result := guard.RunExclusive(context.Background(), "batch-confirm", 0, func(context.Context) error {
		ran = true
		return nil
	})

	require.True(t, ran)
	require.False(t, result.Skipped)
	require.NoError(t, result.Err)
	require.Equal(t, 1, lock.released)
}

func TestGuardSkipsAndReportsHolder(t *testing.T) {
	lock := &fakeLock{acquired: false, holder: "worker-7"}
	guard, err := NewGuard(lock, nil)
	require.NoError(t, err)

	ran := false
	result := guard.RunExclusive(context.Background(), "batch-confirm", 0, func(context.Context) error {
		ran = true
		return nil
	})

	require.False(t, ran)
	require.True(t, result.Skipped)
	require.Equal(t, "worker-7", result.Holder)
	require.Zero(t, lock.released)
}

func TestGuardReturnsFunctionError(t *testing.T) {
	lock := &fakeLock{acquired: true}
	guard, err := NewGuard(lock, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	result := guard.RunExclusive(context.Background(), "batch-confirm", 0, func(context.Context) error {
		return boom
	})

	require.ErrorIs(t, result.Err, boom)
	require.Equal(t, 1, lock.released)
}

func TestGuardTimesOutSlowRuns(t *testing.T) {
	lock := &fakeLock{acquired: true}
	guard, err := NewGuard(lock, nil)
	require.NoError(t, err)

	result := guard.RunExclusive(context.Background(), "batch-confirm", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return ctx.Err()
	})

	require.ErrorIs(t, result.Err, context.DeadlineExceeded)
	require.Equal(t, 1, lock.released)
}

func TestGuardReleasesEvenWhenReleaseFails(t *testing.T) {
	lock := &fakeLock{acquired: true, releaseErr: errors.New("redis down")}
	guard, err := NewGuard(lock, nil)
	require.NoError(t, err)

	result := guard.RunExclusive(context.Background(), "batch-confirm", 0, func(context.Context) error {
		return nil
	})

	// The release failure is not surfaced; the lease expires on its own.
	require.NoError(t, result.Err)
	require.Equal(t, 1, lock.released)
}

func TestGuardAcquireErrorIsReturned(t *testing.T) {
	lock := &fakeLock{acquireErr: errors.New("redis down")}
	guard, err := NewGuard(lock, nil)
	require.NoError(t, err)

	result := guard.RunExclusive(context.Background(), "batch-confirm", 0, func(context.Context) error {
		t.Fatal("function must not run when acquire fails")
		return nil
	})

	require.Error(t, result.Err)
	require.False(t, result.Skipped)
	require.Zero(t, lock.released)
}
