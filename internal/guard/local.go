package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var _ Guard = (*Local)(nil)

// Local is an in-process guard backed by a weighted semaphore of size one.
type Local struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewLocal returns a guard whose Acquire waits at most timeout; zero means
// wait until the caller's context ends.
func NewLocal(timeout time.Duration) *Local {
	return &Local{
		sem:     semaphore.NewWeighted(1),
		timeout: timeout,
	}
}

func (l *Local) Acquire(ctx context.Context) (Release, error) {
	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc

		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	err := l.sem.Acquire(waitCtx, 1)
	if err != nil {
		// the caller's own cancellation wins over our deadline
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrAcquireTimeout
		}

		return nil, err
	}

	var once sync.Once

	return func() { once.Do(func() { l.sem.Release(1) }) }, nil
}

// TryAcquire takes the guard only if it is free right now.
func (l *Local) TryAcquire() (Release, bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}

	var once sync.Once

	return func() { once.Do(func() { l.sem.Release(1) }) }, true
}
