// Package dbctx carries an in-flight pgx.Tx on a context.Context, the one
// shared mechanism every pgx-backed package in this module uses to pick up
// the caller's transaction without an explicit tx parameter on every
// method.
package dbctx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried on ctx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}
