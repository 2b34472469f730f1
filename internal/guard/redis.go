package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

var _ Guard = (*Redis)(nil)

// KeyPrefix namespaces guard keys in Redis.
const KeyPrefix = "moneyserver:ledger:"

// RedisOptions tunes the distributed guard.
type RedisOptions struct {
	// Expiry is the lease of the Redis key. The holder extends it every
	// Expiry/3, so it only bounds how long a crashed holder blocks others.
	Expiry time.Duration
	// Timeout bounds the total wait; zero retries until ctx ends.
	Timeout time.Duration
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     30 * time.Second,
		Timeout:    5 * time.Second,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Redis serializes one ledger instance across processes with a RedLock
// mutex. Callers in the same process queue on a local guard first, so only
// one goroutine per process contends in Redis. The lease is extended in the
// background until Release; if an extension fails the error is logged and
// the transaction row locks in Postgres remain the last line of defence.
type Redis struct {
	rs    *redsync.Redsync
	key   string
	opts  RedisOptions
	local *Local
}

// NewRedis builds a guard for the named ledger instance.
func NewRedis(client goredislib.UniversalClient, instance string, opts RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}

	if strings.TrimSpace(instance) == "" {
		return nil, errors.New("ledger instance name is empty")
	}

	if opts.Expiry <= 0 {
		return nil, errors.New("lock expiry must be greater than 0")
	}

	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRedisOptions().RetryDelay
	}

	return &Redis{
		rs:    redsync.New(goredis.NewPool(client)),
		key:   KeyPrefix + instance,
		opts:  opts,
		local: NewLocal(opts.Timeout),
	}, nil
}

func (g *Redis) Acquire(ctx context.Context) (Release, error) {
	start := time.Now()

	releaseLocal, err := g.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	if g.opts.Timeout > 0 {
		remaining := g.opts.Timeout - time.Since(start)
		if remaining <= 0 {
			releaseLocal()
			return nil, ErrAcquireTimeout
		}

		var cancel context.CancelFunc

		waitCtx, cancel = context.WithTimeout(ctx, remaining)
		defer cancel()
	}

	mutex := g.rs.NewMutex(g.key,
		redsync.WithExpiry(g.opts.Expiry),
		redsync.WithTries(1),
	)

	err = g.lockLoop(ctx, waitCtx, mutex)
	if err != nil {
		releaseLocal()
		return nil, err
	}

	stop, stopped := make(chan struct{}), make(chan struct{})
	go g.keepAlive(mutex, stop, stopped)

	var once sync.Once

	return func() {
		once.Do(func() {
			defer releaseLocal()

			close(stop)
			<-stopped

			// unlock even if the caller's context is gone
			ok, uerr := mutex.UnlockContext(context.Background())
			if uerr != nil || !ok {
				slog.Error("release ledger guard", "key", g.key, "unlock_ok", ok, "error", uerr)
			}
		})
	}, nil
}

// keepAlive extends the lease every third of Expiry while the guard is held,
// so operations longer than Expiry keep other replicas out. It gives up once
// an extension fails, since the lease is then no longer ours.
func (g *Redis) keepAlive(mutex *redsync.Mutex, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(max(g.opts.Expiry/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), g.opts.Expiry/3+time.Second)
			ok, err := mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				slog.Error("extend ledger guard lease", "key", g.key, "extend_ok", ok, "error", err)
				return
			}
		}
	}
}

func (g *Redis) lockLoop(ctx, waitCtx context.Context, mutex *redsync.Mutex) error {
	for {
		err := mutex.LockContext(waitCtx)
		if err == nil {
			return nil
		}

		if !isContention(err) && waitCtx.Err() == nil {
			return fmt.Errorf("lock %s: %w", g.key, err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return ErrAcquireTimeout
		case <-time.After(g.opts.RetryDelay):
		}
	}
}

// isContention tells a busy lock apart from Redis failures. redsync reports
// contention as ErrFailed or as a "lock already taken" error.
func isContention(err error) bool {
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(err.Error(), "lock already taken")
}
