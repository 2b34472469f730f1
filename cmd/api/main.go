package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/moneyserver/internal/api"
	"github.com/fastprodman/moneyserver/internal/config"
	"github.com/fastprodman/moneyserver/internal/guard"
	"github.com/fastprodman/moneyserver/internal/infra/logging"
	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/infra/redisutil"
	"github.com/fastprodman/moneyserver/internal/repos"
	"github.com/fastprodman/moneyserver/internal/repos/memstore"
	"github.com/fastprodman/moneyserver/internal/repos/pgstore"
	"github.com/fastprodman/moneyserver/internal/services/ledger"
	"github.com/fastprodman/moneyserver/pkg/envconf"
	"github.com/fastprodman/moneyserver/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	g, err := openGuard(ctx, cfg)
	if err != nil {
		return err
	}

	led := ledger.New(g, ledger.NewManager(store))

	// --- Expiry sweeper ---
	sweeper, err := ledger.NewSweeper(led, cfg.Ledger.PendingTTL, cfg.Ledger.ExpiryInterval)
	if err != nil {
		return fmt.Errorf("init sweeper: %w", err)
	}

	go sweeper.Run(context.WithoutCancel(ctx))

	shutdownqueue.AddNamed("expiry sweeper", sweeper.Stop)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, led)

	shutdownqueue.AddNamed("http server", func(c context.Context) error {
		slog.Info("shutting down http server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started",
		"port", cfg.Port, "store", cfg.Ledger.Store, "guard", cfg.Ledger.Guard, "instance", cfg.Ledger.Instance)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

func openStore(ctx context.Context, cfg *apiConfig) (repos.Store, error) {
	switch cfg.Ledger.Store {
	case config.StoreMemory:
		slog.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nil
	case config.StorePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, errors.New("PG_DSN is required for the postgres store")
		}

		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}

		shutdownqueue.AddNamed("postgres", func(context.Context) error {
			return db.Close()
		})

		return pgstore.New(db), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Ledger.Store)
	}
}

func openGuard(ctx context.Context, cfg *apiConfig) (guard.Guard, error) {
	switch cfg.Ledger.Guard {
	case config.GuardLocal:
		return guard.NewLocal(cfg.Ledger.LockTimeout), nil
	case config.GuardRedis:
		client, err := redisutil.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}

		shutdownqueue.AddNamed("redis", func(context.Context) error {
			return client.Close()
		})

		opts := guard.DefaultRedisOptions()
		opts.Expiry = cfg.Ledger.LockExpiry
		opts.Timeout = cfg.Ledger.LockTimeout

		g, err := guard.NewRedis(client, cfg.Ledger.Instance, opts)
		if err != nil {
			return nil, fmt.Errorf("redis guard: %w", err)
		}

		return g, nil
	default:
		return nil, fmt.Errorf("unknown guard %q", cfg.Ledger.Guard)
	}
}
