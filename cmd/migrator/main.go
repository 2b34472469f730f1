package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fastprodman/moneyserver/internal/config"
	"github.com/fastprodman/moneyserver/internal/infra/logging"
	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/pkg/envconf"
)

//go:embed migrations/*.sql
var baseFS embed.FS

//go:embed test_data/*.sql
var devFS embed.FS

// migrationSet is one independently versioned group of migrations. Each set
// keeps its own version table, so seed versions never mix with the schema.
type migrationSet struct {
	name    string
	fsys    fs.FS
	dir     string
	table   string
	devOnly bool
}

var sets = []migrationSet{
	{name: "schema", fsys: baseFS, dir: "migrations", table: "schema_migrations"},
	{name: "dev seed", fsys: devFS, dir: "test_data", table: "schema_migrations_dev", devOnly: true},
}

type migratorConfig struct {
	Postgres config.PostgresConfig
	LogLevel slog.Level `env:"APP_LOG_LEVEL" default:"info"`
	AppEnv   string     `env:"APP_ENV" default:"PROD"`
	// Steps migrates the schema set by that many versions instead of to the
	// latest one; negative values roll back.
	Steps int `env:"MIGRATE_STEPS" default:"0"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		slog.Error("migration run failed", "error", err)
		//nolint:gocritic
		os.Exit(1)
	}

	slog.Info("migration run finished")
}

func run(ctx context.Context) error {
	cfg := new(migratorConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	if cfg.Postgres.DSN == "" {
		return errors.New("PG_DSN is required")
	}

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	for _, set := range selectSets(cfg) {
		steps := 0
		if set.table == sets[0].table {
			steps = cfg.Steps
		}

		err = apply(db, set, steps)
		if err != nil {
			return fmt.Errorf("%s migrations: %w", set.name, err)
		}

		slog.Info("migrations applied", "set", set.name, "steps", steps)
	}

	return nil
}

// selectSets returns the sets to run for cfg. Rollbacks touch the schema
// only.
func selectSets(cfg *migratorConfig) []migrationSet {
	out := make([]migrationSet, 0, len(sets))

	for _, s := range sets {
		if s.devOnly && (cfg.AppEnv != "DEV" || cfg.Steps < 0) {
			continue
		}

		out = append(out, s)
	}

	return out
}

func apply(db *sql.DB, set migrationSet, steps int) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: set.table})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}

	src, err := iofs.New(set.fsys, set.dir)
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if steps != 0 {
		err = m.Steps(steps)
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}
