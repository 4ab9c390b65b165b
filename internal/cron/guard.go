package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mandibook/mandibook-backend/pkg/logger"
)

// RunResult reports what happened to a guarded execution.
type RunResult struct {
	// Skipped is true when the lease was already held and the function never
	// ran.
	Skipped bool
	// Holder identifies who held the lease when the run was skipped.
	Holder string
	// Err carries the protected function's failure or the timeout.
	Err error
}

// Guard wraps a function in lease-based mutual exclusion: acquire, race the
// function against a timeout, and always attempt release at the end.
type Guard struct {
	lock Lock
	logg *logger.Logger
}

// NewGuard builds a guard over the provided lock.
func NewGuard(lock Lock, logg *logger.Logger) (*Guard, error) {
	if lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	return &Guard{lock: lock, logg: logg}, nil
}

// RunExclusive executes fn under the lease. Release is attempted in every
// outcome; a release failure is logged, never returned, since the lease
// expires on its own.
func (g *Guard) RunExclusive(ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) RunResult {
	acquired, err := g.lock.Acquire(ctx)
	if err != nil {
		return RunResult{Err: fmt.Errorf("acquire lock for %s: %w", name, err)}
	}
	if !acquired {
		holder, holderErr := g.lock.Holder(ctx)
		if holderErr != nil && g.logg != nil {
			g.logg.Warn(g.logg.WithField(ctx, "error", holderErr.Error()), "could not identify lock holder")
		}
		return RunResult{Skipped: true, Holder: holder}
	}
	defer func() {
		if relErr := g.lock.Release(ctx); relErr != nil && g.logg != nil {
			g.logg.Error(g.logg.WithField(ctx, "run", name), "failed to release lock", relErr)
		}
	}()

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(runCtx)
	}()

	select {
	case err := <-done:
		return RunResult{Err: err}
	case <-runCtx.Done():
		return RunResult{Err: fmt.Errorf("%s: %w", name, runCtx.Err())}
	}
}
