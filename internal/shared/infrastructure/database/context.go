package database

import (
	"context"
	"fmt"
)

type txKey struct{}

type txInfo struct {
	tx    Transaction
	owned bool
}

func withTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, txInfo{tx: tx, owned: owned})
}

// TxFromContext returns the transaction carried by ctx, or nil.
func TxFromContext(ctx context.Context) Transaction {
	info, ok := ctx.Value(txKey{}).(txInfo)
	if !ok {
		return nil
	}
	return info.tx
}

// ExecutorFromContext returns the transaction if present, otherwise the connection.
// Repositories use it so they work the same inside and outside InTx.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return conn
}

// InTx runs fn inside a transaction. A transaction already present in ctx is
// reused and left for its owner to finish.
func InTx(ctx context.Context, conn Connection, fn func(ctx context.Context) error) error {
	if info, ok := ctx.Value(txKey{}).(txInfo); ok && info.tx != nil {
		return fn(withTx(ctx, info.tx, false))
	}

	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(withTx(ctx, tx, true)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
