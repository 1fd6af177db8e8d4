package tx

import (
	"context"
	"sync"

	dErrors "spendwise/pkg/domain-errors"
)

type memoryTxKey struct{}

// journal collects the undo steps of one in-memory transaction.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) add(undo func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, undo)
}

func (j *journal) rollback() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// MemoryRunner gives in-memory stores all-or-nothing semantics. Transactions run one at a
// time. Stores record an undo step for every write made with a transaction context, and
// on error only those steps are replayed, newest first. Writes made outside the
// transaction are left alone.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := ctx.Value(memoryTxKey{}).(*journal); ok {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// OnRollback registers undo to run if the in-memory transaction carried by ctx aborts.
// Outside a transaction the write is final and nothing is recorded.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(memoryTxKey{}).(*journal); ok {
		j.add(undo)
	}
}
