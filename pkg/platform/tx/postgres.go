package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "spendwise/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// PostgresRunner wraps fn in a database transaction.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresRunner(db *sql.DB) *PostgresRunner {
	return &PostgresRunner{db: db, timeout: defaultTxTimeout}
}

func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Nested calls join the outer transaction.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
