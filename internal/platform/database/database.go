package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"polls-service/internal/retry"
)

// Driver is the database/sql driver name the store runs on.
type Driver string

const (
	DriverPostgres Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

func ParseDriver(s string) (Driver, error) {
	switch Driver(s) {
	case DriverPostgres, "postgres":
		return DriverPostgres, nil
	case DriverSQLite, "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", s)
	}
}

// TxOptions returns the isolation the engine's transactions run with.
// SQLite serializes writers and rejects explicit isolation levels.
func (d Driver) TxOptions() *sql.TxOptions {
	if d == DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

// ReadTxOptions is used for multi-statement reads: Postgres takes one
// snapshot for the whole transaction so a concurrent delete is never seen
// halfway. SQLite transactions already read from a single snapshot.
func (d Driver) ReadTxOptions() *sql.TxOptions {
	if d == DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// LockForUpdate and LockForShare return the row-lock suffix for SELECTs
// inside a transaction. SQLite has no row locks; its single writer covers it.
func (d Driver) LockForUpdate() string {
	if d == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (d Driver) LockForShare() string {
	if d == DriverPostgres {
		return " FOR SHARE"
	}
	return ""
}

type Config struct {
	Driver       Driver
	DSN          string
	MaxOpenConns int
	PingTimeout  time.Duration
	PingAttempts int
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Driver == DriverSQLite {
		cfg.DSN = SQLiteDSN(cfg.DSN)
	}
	db, err := sql.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// one connection: SQLite allows a single writer and this keeps
		// transactions queued in the pool instead of failing with SQLITE_BUSY
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 10
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
		db.SetConnMaxLifetime(time.Hour)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}
	attempts := cfg.PingAttempts
	if attempts <= 0 {
		attempts = 6
	}

	err = retry.DoWithRetry(ctx, attempts, 500*time.Millisecond, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}
