package database

import (
	"context"
	"errors"
	"fmt"
)

type txKey struct{}

// ExecutorFromContext returns the transaction carried by ctx, or conn.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx, ok := ctx.Value(txKey{}).(Tx); ok {
		return tx
	}
	return conn
}

// WithinTx runs fn in a transaction reachable through ExecutorFromContext.
// It commits when fn succeeds and rolls back otherwise. When ctx already
// carries a transaction fn joins it, and the outer call decides.
func WithinTx(ctx context.Context, conn Connection, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(Tx); ok {
		return fn(ctx)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
