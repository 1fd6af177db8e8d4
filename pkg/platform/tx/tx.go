// Package tx defines the transaction boundary shared by every service.
//
// Services call Runner.RunInTx and pass the txCtx they receive to stores. Postgres stores
// pick the *sql.Tx out of the context through From; in-memory stores journal their writes
// with OnRollback and the MemoryRunner replays that journal on failure.
package tx

import (
	"context"
	"database/sql"
)

// Runner executes fn inside a single transaction. Any error returned by fn aborts the
// whole transaction.
type Runner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Executor is the subset of *sql.DB and *sql.Tx the stores use.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFrom returns the transaction in ctx, or db when no transaction is active.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}
