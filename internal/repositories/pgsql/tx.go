// Package pgsql implements every interface in internal/core/ports against
// Postgres via pgx/v5: a pgxpool.Pool-backed repository per entity,
// batched multi-row inserts for aggregate writes, and
// apperrors.NewAppError wrapping on every driver failure.
//
// The ports contract gives every repository method only a context.Context,
// never an explicit tx parameter, so a workflow's in-flight transaction
// travels through ctx: TxManager.Begin stashes the pgx.Tx it opens under a
// context key, and q(ctx, pool) recovers it, falling back to the pool for
// reads issued outside a transaction.
package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/platform/dbctx"
)

// dbTx adapts a pgx.Tx to ports.DBTx.
type dbTx struct {
	tx pgx.Tx
}

func (d *dbTx) Commit(ctx context.Context) error {
	if err := d.tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

func (d *dbTx) Rollback(ctx context.Context) error {
	if err := d.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// TxManager opens pgx transactions at the requested isolation level and
// carries them on the returned context.
type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

func (m *TxManager) Begin(ctx context.Context, iso ports.IsoLevel) (context.Context, ports.DBTx, error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: toPgxIsoLevel(iso)})
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return dbctx.WithTx(ctx, tx), &dbTx{tx: tx}, nil
}

func toPgxIsoLevel(iso ports.IsoLevel) pgx.TxIsoLevel {
	switch iso {
	case ports.IsoSerializable:
		return pgx.Serializable
	case ports.IsoReadCommitted:
		return pgx.ReadCommitted
	default:
		return pgx.RepeatableRead
	}
}

// querier is the subset of pgx's query surface shared by *pgxpool.Pool and
// pgx.Tx, letting every repository method run against whichever is active
// on ctx without branching on its own.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// q returns the transaction carried on ctx, if any, else pool itself.
func q(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := dbctx.TxFromContext(ctx); ok {
		return tx
	}
	return pool
}
