package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"polls-service/internal/domain/vote"
	"polls-service/internal/platform/database"
)

type VoteRepo struct {
	db     *sql.DB
	driver database.Driver
	logger *slog.Logger
}

func NewVoteRepo(db *sql.DB, driver database.Driver, logger *slog.Logger) *VoteRepo {
	return &VoteRepo{db: db, driver: driver, logger: loggerOrDefault(logger)}
}

// Record inserts the vote and bumps the option counter in one transaction.
// The pre-check for an earlier vote gives the common case a clean error; the
// UNIQUE (poll_id, user_id) constraint decides the racing case.
func (r *VoteRepo) Record(ctx context.Context, v *vote.Vote) error {
	ts := now()

	err := database.WithTx(ctx, r.db, r.driver.TxOptions(), func(tx *sql.Tx) error {
		var pollID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM polls WHERE id = $1`+r.driver.LockForShare(), v.PollID,
		).Scan(&pollID)
		if errors.Is(err, sql.ErrNoRows) {
			return vote.ErrPollNotFound
		}
		if err != nil {
			return database.Storage("select poll", err)
		}

		var priorID int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM poll_votes WHERE poll_id = $1 AND user_id = $2`, v.PollID, v.UserID,
		).Scan(&priorID)
		switch {
		case err == nil:
			return vote.ErrAlreadyVoted
		case !errors.Is(err, sql.ErrNoRows):
			return database.Storage("select prior vote", err)
		}

		var optionID int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM poll_options WHERE id = $1 AND poll_id = $2`, v.OptionID, v.PollID,
		).Scan(&optionID)
		if errors.Is(err, sql.ErrNoRows) {
			return vote.ErrOptionNotInPoll
		}
		if err != nil {
			return database.Storage("select option", err)
		}

		err = tx.QueryRowContext(ctx, `
            INSERT INTO poll_votes (poll_id, option_id, user_id, created_at)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `, v.PollID, v.OptionID, v.UserID, ts).Scan(&v.ID)
		if err != nil {
			switch {
			case database.IsUniqueViolation(err):
				return vote.ErrAlreadyVoted
			case database.IsForeignKeyViolation(err):
				return vote.ErrOptionNotInPoll
			}
			return database.Storage("insert vote", err)
		}

		res, err := tx.ExecContext(ctx, `
            UPDATE poll_options SET vote_count = vote_count + 1
            WHERE id = $1 AND poll_id = $2
        `, v.OptionID, v.PollID)
		if err != nil {
			return database.Storage("increment vote count", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return database.Storage("increment vote count", err)
		}
		if n != 1 {
			return database.Storage("increment vote count", fmt.Errorf("expected 1 row, updated %d", n))
		}
		return nil
	})
	if err != nil {
		v.ID = 0
		return logStorage(r.logger, "vote_repo_record_failed", err,
			"poll_id", v.PollID,
			"option_id", v.OptionID,
			"user_id", v.UserID,
		)
	}

	v.CreatedAt = ts
	return nil
}

func (r *VoteRepo) HasUserVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	var voted bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM poll_votes WHERE poll_id = $1 AND user_id = $2)`, pollID, userID,
	).Scan(&voted)
	if err != nil {
		return false, logStorage(r.logger, "vote_repo_has_voted_failed", database.Storage("select vote", err),
			"poll_id", pollID, "user_id", userID)
	}
	return voted, nil
}

// Tally reads the poll and its option counters from one snapshot.
func (r *VoteRepo) Tally(ctx context.Context, pollID int64) ([]vote.OptionCount, error) {
	var res []vote.OptionCount
	err := database.WithTx(ctx, r.db, r.driver.ReadTxOptions(), func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM polls WHERE id = $1`, pollID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return vote.ErrPollNotFound
		}
		if err != nil {
			return database.Storage("select poll", err)
		}

		rows, err := tx.QueryContext(ctx, `
        SELECT id, option_text, vote_count
        FROM poll_options
        WHERE poll_id = $1
        ORDER BY id
    `, pollID)
		if err != nil {
			return database.Storage("select options", err)
		}
		defer rows.Close()

		counts := []vote.OptionCount{}
		for rows.Next() {
			var c vote.OptionCount
			if err := rows.Scan(&c.OptionID, &c.Text, &c.Votes); err != nil {
				return database.Storage("scan option count", err)
			}
			counts = append(counts, c)
		}
		if err := rows.Err(); err != nil {
			return database.Storage("iterate option counts", err)
		}

		res = counts
		return nil
	})
	if err != nil {
		return nil, logStorage(r.logger, "vote_repo_tally_failed", err, "poll_id", pollID)
	}
	return res, nil
}
