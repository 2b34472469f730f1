package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLocal_SerializesCallers(t *testing.T) {
	t.Parallel()

	g := NewLocal(0)

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		counter int
	)

	eg, ctx := errgroup.WithContext(t.Context())
	for range 50 {
		eg.Go(func() error {
			return With(ctx, g, func(context.Context) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}

				counter++ // unsynchronized on purpose: the guard is the only protection
				time.Sleep(time.Millisecond)

				inside.Add(-1)

				return nil
			})
		})
	}

	require.NoError(t, eg.Wait())
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 50, counter)
}

func TestLocal_BoundedWait(t *testing.T) {
	t.Parallel()

	g := NewLocal(30 * time.Millisecond)

	release, err := g.Acquire(t.Context())
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = g.Acquire(t.Context())
	require.ErrorIs(t, err, ErrAcquireTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestLocal_CallerCancellation(t *testing.T) {
	t.Parallel()

	g := NewLocal(time.Minute)

	release, err := g.Acquire(t.Context())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = g.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocal_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	g := NewLocal(0)

	release, err := g.Acquire(t.Context())
	require.NoError(t, err)

	release()
	release()

	r1, ok := g.TryAcquire()
	require.True(t, ok)

	_, ok = g.TryAcquire()
	assert.False(t, ok, "double release must not free a second slot")

	r1()
}

func TestWith_ReleasesOnErrorAndPanic(t *testing.T) {
	t.Parallel()

	g := NewLocal(10 * time.Millisecond)
	boom := errors.New("boom")

	err := With(t.Context(), g, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	func() {
		defer func() { _ = recover() }()

		_ = With(t.Context(), g, func(context.Context) error { panic("kaboom") })
	}()

	release, ok := g.TryAcquire()
	require.True(t, ok, "guard leaked after error or panic")
	release()
}

func TestWith_DetachesCancellation(t *testing.T) {
	t.Parallel()

	g := NewLocal(0)
	ctx, cancel := context.WithCancel(t.Context())

	var wg sync.WaitGroup
	wg.Add(1)

	err := With(ctx, g, func(inner context.Context) error {
		defer wg.Done()

		cancel()

		return inner.Err()
	})

	wg.Wait()
	assert.NoError(t, err, "operation context must survive caller cancellation")
}

func TestWith_AcquireFailure(t *testing.T) {
	t.Parallel()

	g := NewLocal(5 * time.Millisecond)

	release, err := g.Acquire(t.Context())
	require.NoError(t, err)
	defer release()

	called := false
	err = With(t.Context(), g, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrAcquireTimeout)
	assert.False(t, called)
}
