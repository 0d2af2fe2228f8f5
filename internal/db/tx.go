package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// Conn returns the transaction carried by ctx, or pool when no transaction
// is active. Repositories call it for every statement so the same method
// works standalone and inside TxManager.WithinTx.
func Conn(ctx context.Context, pool Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// TxManager runs units of work inside a single database transaction.
type TxManager struct {
	pool Pool
}

// NewTxManager creates a TxManager over pool.
func NewTxManager(pool Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx starts a transaction, hands fn a context carrying it, and commits
// when fn returns nil. Any error from fn rolls the transaction back and is
// returned unchanged. A call made while a transaction is already active
// joins it instead of nesting.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
