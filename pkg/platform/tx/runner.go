package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Runner executes a function within a transaction boundary. Stores resolve the
// active transaction from the context via From, so every store call made inside
// fn joins the same unit of work.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs units of work against database/sql transactions.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

// RunInTx begins a transaction, injects it into the context, and commits when
// fn returns nil. Any error rolls the whole unit back. Nested calls join the
// existing transaction rather than opening a second one.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback tx after %w: %v", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MemoryRunner satisfies Runner for in-memory stores, which have no real
// transaction boundary. fn runs directly; partial writes on failure are
// acceptable in tests that use it.
type MemoryRunner struct{}

func NewMemoryRunner() *MemoryRunner { return &MemoryRunner{} }

func (*MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
