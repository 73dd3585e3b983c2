package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates the tables the service needs. Safe to call on every
// start: all statements use IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	stmts := postgresSchema
	if driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// poll_votes carries UNIQUE (poll_id, user_id): the store, not the engine,
// decides which of two racing votes by the same user wins.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            BIGSERIAL PRIMARY KEY,
        email         TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS polls (
        id         BIGSERIAL PRIMARY KEY,
        question   TEXT NOT NULL,
        author_id  BIGINT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS poll_options (
        id          BIGSERIAL PRIMARY KEY,
        poll_id     BIGINT NOT NULL REFERENCES polls (id),
        option_text TEXT NOT NULL,
        vote_count  BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (id, poll_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_poll_options_poll_id ON poll_options (poll_id)`,
	`CREATE TABLE IF NOT EXISTS poll_votes (
        id         BIGSERIAL PRIMARY KEY,
        poll_id    BIGINT NOT NULL REFERENCES polls (id),
        option_id  BIGINT NOT NULL REFERENCES poll_options (id),
        user_id    BIGINT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        CONSTRAINT poll_votes_poll_user_key UNIQUE (poll_id, user_id),
        CONSTRAINT poll_votes_option_in_poll_fkey FOREIGN KEY (option_id, poll_id)
            REFERENCES poll_options (id, poll_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_poll_votes_option_id ON poll_votes (option_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            INTEGER PRIMARY KEY AUTOINCREMENT,
        email         TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
        created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS polls (
        id         INTEGER PRIMARY KEY AUTOINCREMENT,
        question   TEXT NOT NULL,
        author_id  INTEGER NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS poll_options (
        id          INTEGER PRIMARY KEY AUTOINCREMENT,
        poll_id     INTEGER NOT NULL REFERENCES polls (id),
        option_text TEXT NOT NULL,
        vote_count  INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
        created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (id, poll_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_poll_options_poll_id ON poll_options (poll_id)`,
	`CREATE TABLE IF NOT EXISTS poll_votes (
        id         INTEGER PRIMARY KEY AUTOINCREMENT,
        poll_id    INTEGER NOT NULL REFERENCES polls (id),
        option_id  INTEGER NOT NULL REFERENCES poll_options (id),
        user_id    INTEGER NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        CONSTRAINT poll_votes_poll_user_key UNIQUE (poll_id, user_id),
        CONSTRAINT poll_votes_option_in_poll_fkey FOREIGN KEY (option_id, poll_id)
            REFERENCES poll_options (id, poll_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_poll_votes_option_id ON poll_votes (option_id)`,
}

// sqliteParams are required on every SQLite connection: foreign keys back
// the option-in-poll rule, and the time format keeps timestamps sortable.
var sqliteParams = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_time_format=sqlite",
}

// SQLiteDSN turns a file path or a "file:" DSN into one carrying every
// parameter in sqliteParams. Parameters already present are kept as given.
func SQLiteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	for _, p := range sqliteParams {
		if strings.Contains(dsn, p) {
			continue
		}
		sep := "&"
		if !strings.Contains(dsn, "?") {
			sep = "?"
		} else if strings.HasSuffix(dsn, "?") || strings.HasSuffix(dsn, "&") {
			sep = ""
		}
		dsn += sep + p
	}
	return dsn
}
