package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

type txState struct {
	tx    pgx.Tx
	hooks []func()
}

// WithTx runs fn inside a RepeatableRead transaction. When ctx already carries
// a transaction started by an outer WithTx, fn joins it and the outer call
// owns commit and rollback.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx, state.tx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	state := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txKey{}, state), tx); err != nil {
		return concurrencyError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return concurrencyError(fmt.Errorf("platform/db: commit tx: %w", err))
	}
	for _, hook := range state.hooks {
		hook()
	}
	return nil
}

// AfterCommit schedules fn to run once the outermost transaction in ctx
// commits. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn()
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// Querier returns the transaction carried by ctx, or pool when there is none.
func Querier(ctx context.Context, pool *pgxpool.Pool) Queryer {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return pool
}
