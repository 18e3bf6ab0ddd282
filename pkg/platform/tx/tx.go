// Package tx carries a database transaction through context so that a unit of
// work spanning several stores (filing submission touches six tables) commits
// or rolls back as one.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx returns a context carrying the transaction. Stores resolve it via
// From and fall back to their plain *sql.DB when absent.
func WithTx(ctx context.Context, sqlTx *sql.Tx) context.Context {
	if sqlTx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, sqlTx)
}

// From reports the active transaction, if the caller is inside RunInTx.
func From(ctx context.Context) (*sql.Tx, bool) {
	sqlTx, ok := ctx.Value(txKey).(*sql.Tx)
	return sqlTx, ok
}
