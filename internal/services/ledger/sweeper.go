package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper periodically expires pending transactions older than a TTL.
type Sweeper struct {
	ledger   *Ledger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper validates ttl and interval; both must be positive.
func NewSweeper(l *Ledger, ttl, interval time.Duration) (*Sweeper, error) {
	switch {
	case ttl <= 0:
		return nil, fmt.Errorf("new sweeper: %w: pending ttl must be positive, got %s", ErrInvalidArgument, ttl)
	case interval <= 0:
		return nil, fmt.Errorf("new sweeper: %w: interval must be positive, got %s", ErrInvalidArgument, interval)
	}

	return &Sweeper{
		ledger:   l,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// SweepOnce expires everything pending since before now-ttl.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.ledger.SetTransExpired(ctx, s.now().Add(-s.ttl).Unix())
}

// Run sweeps every interval until ctx ends or Stop is called. Failed sweeps
// are logged and retried on the next tick. Only the first call runs.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			switch {
			case err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled):
				slog.Error("expiry sweep failed", "error", err, "retryable", IsRetryable(err))
			case n > 0:
				slog.Info("expiry sweep finished", "expired", n)
			}
		}
	}
}

// Stop ends Run and waits for an in-flight sweep to finish or ctx to end. A
// sweeper that never ran stops at once, and a later Run returns immediately.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	if !s.started.Load() {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
