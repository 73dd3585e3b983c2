package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"polls-service/internal/domain/poll"
	"polls-service/internal/platform/database"
)

type PollRepo struct {
	db     *sql.DB
	driver database.Driver
	logger *slog.Logger
}

func NewPollRepo(db *sql.DB, driver database.Driver, logger *slog.Logger) *PollRepo {
	return &PollRepo{db: db, driver: driver, logger: loggerOrDefault(logger)}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) error {
	ts := now()

	err := database.WithTx(ctx, r.db, r.driver.TxOptions(), func(tx *sql.Tx) error {
		queryPoll := `
        INSERT INTO polls (question, author_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
		if err := tx.QueryRowContext(ctx, queryPoll, p.Question, p.AuthorID, ts, ts).Scan(&p.ID); err != nil {
			return database.Storage("insert poll", err)
		}

		queryOpt := `
        INSERT INTO poll_options (poll_id, option_text, vote_count, created_at)
        VALUES ($1, $2, 0, $3)
        RETURNING id
    `
		for i := range options {
			options[i].PollID = p.ID
			options[i].VoteCount = 0
			options[i].CreatedAt = ts
			if err := tx.QueryRowContext(ctx, queryOpt, p.ID, options[i].Text, ts).Scan(&options[i].ID); err != nil {
				return database.Storage("insert poll option", err)
			}
		}
		return nil
	})
	if err != nil {
		p.ID = 0
		for i := range options {
			options[i].ID = 0
			options[i].PollID = 0
		}
		return logStorage(r.logger, "poll_repo_create_failed", err, "author_id", p.AuthorID)
	}

	p.CreatedAt = ts
	p.UpdatedAt = ts
	return nil
}

// GetByID reads the poll and its options from one snapshot, so a poll is
// never returned without the options it was created with.
func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	var (
		p    *poll.Poll
		opts []poll.Option
	)
	err := database.WithTx(ctx, r.db, r.driver.ReadTxOptions(), func(tx *sql.Tx) error {
		row := &poll.Poll{}
		err := tx.QueryRowContext(ctx, `
        SELECT id, question, author_id, created_at, updated_at
        FROM polls WHERE id = $1
    `, id).Scan(&row.ID, &row.Question, &row.AuthorID, &row.CreatedAt, &row.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return poll.ErrPollNotFound
		}
		if err != nil {
			return database.Storage("select poll", err)
		}

		rows, err := tx.QueryContext(ctx, `
        SELECT id, poll_id, option_text, vote_count, created_at
        FROM poll_options WHERE poll_id = $1
        ORDER BY id
    `, id)
		if err != nil {
			return database.Storage("select poll options", err)
		}
		defer rows.Close()

		res := []poll.Option{}
		for rows.Next() {
			var o poll.Option
			if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.VoteCount, &o.CreatedAt); err != nil {
				return database.Storage("scan poll option", err)
			}
			res = append(res, o)
		}
		if err := rows.Err(); err != nil {
			return database.Storage("iterate poll options", err)
		}

		p, opts = row, res
		return nil
	})
	if err != nil {
		return nil, nil, logStorage(r.logger, "poll_repo_get_failed", err, "poll_id", id)
	}
	return p, opts, nil
}

func (r *PollRepo) List(ctx context.Context) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, question, author_id, created_at, updated_at
        FROM polls
        ORDER BY created_at DESC, id DESC
    `)
	if err != nil {
		return nil, logStorage(r.logger, "poll_repo_list_failed", database.Storage("select polls", err))
	}
	defer rows.Close()

	res := []poll.Poll{}
	for rows.Next() {
		var p poll.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, database.Storage("scan poll", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Storage("iterate polls", err)
	}
	return res, nil
}

// Delete removes votes, then options, then the poll, in one transaction. The
// poll row is locked first so concurrent votes either finish before the
// delete or see the poll gone.
func (r *PollRepo) Delete(ctx context.Context, id, authorID int64) error {
	err := database.WithTx(ctx, r.db, r.driver.TxOptions(), func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx,
			`SELECT author_id FROM polls WHERE id = $1`+r.driver.LockForUpdate(), id,
		).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return poll.ErrPollNotFound
		}
		if err != nil {
			return database.Storage("select poll owner", err)
		}
		if owner != authorID {
			return poll.ErrNotOwner
		}

		for _, q := range []string{
			`DELETE FROM poll_votes WHERE poll_id = $1`,
			`DELETE FROM poll_options WHERE poll_id = $1`,
			`DELETE FROM polls WHERE id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return database.Storage("delete poll", err)
			}
		}
		return nil
	})
	return logStorage(r.logger, "poll_repo_delete_failed", err, "poll_id", id, "author_id", authorID)
}
