package database

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

type txKey struct{}

// TxManager runs a function inside a single database transaction and makes
// the transaction available to repositories through the context. Both the
// order and membership repositories resolve it, so "persist the confirmed
// order and its memberships atomically" is structural rather than ad hoc.
type TxManager struct {
	DB *bun.DB
}

func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{DB: db}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// FromContext returns the transaction carried by ctx, or the fallback
// connection when no transaction is running.
func FromContext(ctx context.Context, db bun.IDB) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return db
}
