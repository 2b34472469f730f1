// Package guard serializes ledger operations on one ledger instance.
//
// A Guard is a coarse mutual-exclusion lock: while one caller holds it no
// other operation on the same instance can run. Use With for scoped
// acquisition so the guard is released on every exit path.
package guard

import (
	"context"
	"errors"
	"fmt"
)

// ErrAcquireTimeout is returned when the guard could not be obtained within
// the configured wait. Callers may retry.
var ErrAcquireTimeout = errors.New("ledger guard acquisition timed out")

// Release gives the guard back. It is safe to call more than once.
type Release func()

type Guard interface {
	// Acquire blocks until the guard is held, ctx ends or the bounded wait
	// elapses.
	Acquire(ctx context.Context) (Release, error)
}

// With runs fn while holding g. The guard is released when fn returns or
// panics. fn receives a context detached from the caller's cancellation:
// once a ledger operation has started it runs to completion.
func With(ctx context.Context, g Guard, fn func(ctx context.Context) error) error {
	release, err := g.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire guard: %w", err)
	}
	defer release()

	return fn(context.WithoutCancel(ctx))
}
