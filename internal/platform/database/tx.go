package database

import (
	"context"
	"database/sql"
)

// WithTx runs fn inside a transaction acquired from db. The transaction is
// committed when fn returns nil and rolled back on error or panic. Errors from
// fn are returned unchanged; begin and commit failures become StorageErrors.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return Storage("begin tx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return Storage("commit tx", err)
	}
	return nil
}
