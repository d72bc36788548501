package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics and committed otherwise.
func (d *DB) RunInTx(ctx context.Context, fn TxFn) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		d.log.WithError(err).Error("failed to begin transaction")
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				d.log.WithError(rbErr).WithField("panic", p).Error("failed to roll back transaction after panic")
			} else {
				d.log.WithField("panic", p).Error("rolled back transaction after panic")
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.log.WithError(rbErr).WithField("original_error", err.Error()).Error("failed to roll back transaction")
			return fmt.Errorf("roll back transaction: %v (original error: %w)", rbErr, err)
		}
		d.log.WithError(err).Debug("rolled back transaction")
		return err
	}

	if err := tx.Commit(); err != nil {
		d.log.WithError(err).Error("failed to commit transaction")
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
