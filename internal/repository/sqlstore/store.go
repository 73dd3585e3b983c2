// Package sqlstore implements the domain repositories on database/sql. The
// same queries run on Postgres (pgx) and SQLite (modernc); only row-lock
// clauses and transaction options differ per driver.
package sqlstore

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"polls-service/internal/platform/database"
)

type Store struct {
	Polls *PollRepo
	Votes *VoteRepo
	Users *UserRepo
}

func New(db *sql.DB, driver database.Driver, logger *slog.Logger) *Store {
	return &Store{
		Polls: NewPollRepo(db, driver, logger),
		Votes: NewVoteRepo(db, driver, logger),
		Users: NewUserRepo(db, logger),
	}
}

// now is the timestamp written on insert. Postgres keeps microseconds, so
// values are truncated to make what we return equal what we read back.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// logStorage logs err when it is a StorageError; domain errors are expected
// outcomes and pass through silently.
func logStorage(logger *slog.Logger, event string, err error, args ...any) error {
	var se *database.StorageError
	if errors.As(err, &se) {
		logger.Error(event, append([]any{"error", err}, args...)...)
	}
	return err
}
