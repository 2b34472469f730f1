package config

import (
	"errors"
	"fmt"
	"time"
)

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN" default:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" default:""`
	DB       int    `env:"REDIS_DB" default:"0"`
}

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Guard backends.
const (
	GuardLocal = "local"
	GuardRedis = "redis"
)

type LedgerConfig struct {
	// Instance names the ledger instance (region or shard) guarded by this process.
	Instance string `env:"LEDGER_INSTANCE" default:"default"`
	Store    string `env:"LEDGER_STORE" default:"postgres"`
	Guard    string `env:"LEDGER_GUARD" default:"local"`

	// LockTimeout bounds the wait for the exclusive guard. Zero waits forever.
	LockTimeout time.Duration `env:"LEDGER_LOCK_TIMEOUT" default:"5s"`
	// LockExpiry is the redsync lease; it must outlive the longest operation.
	LockExpiry time.Duration `env:"LEDGER_LOCK_EXPIRY" default:"30s"`

	PendingTTL     time.Duration `env:"LEDGER_PENDING_TTL" default:"1h"`
	ExpiryInterval time.Duration `env:"LEDGER_EXPIRY_INTERVAL" default:"1m"`
}

// Validate rejects settings the ledger cannot run with.
func (c LedgerConfig) Validate() error {
	var errs []error

	if c.Instance == "" {
		errs = append(errs, errors.New("LEDGER_INSTANCE must not be empty"))
	}

	if c.Store != StorePostgres && c.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("LEDGER_STORE %q is not one of %s, %s", c.Store, StorePostgres, StoreMemory))
	}

	if c.Guard != GuardLocal && c.Guard != GuardRedis {
		errs = append(errs, fmt.Errorf("LEDGER_GUARD %q is not one of %s, %s", c.Guard, GuardLocal, GuardRedis))
	}

	if c.LockTimeout < 0 {
		errs = append(errs, fmt.Errorf("LEDGER_LOCK_TIMEOUT must not be negative, got %s", c.LockTimeout))
	}

	if c.LockExpiry <= 0 {
		errs = append(errs, fmt.Errorf("LEDGER_LOCK_EXPIRY must be positive, got %s", c.LockExpiry))
	}

	if c.PendingTTL <= 0 {
		errs = append(errs, fmt.Errorf("LEDGER_PENDING_TTL must be positive, got %s", c.PendingTTL))
	}

	if c.ExpiryInterval <= 0 {
		errs = append(errs, fmt.Errorf("LEDGER_EXPIRY_INTERVAL must be positive, got %s", c.ExpiryInterval))
	}

	return errors.Join(errs...)
}
