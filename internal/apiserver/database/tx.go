package database

import (
	"context"

	"gorm.io/gorm"
)

// txKey carries the ambient transaction through a request context.
type txKey struct{}

// TransactionFromContext returns the transaction stored in ctx, or nil
// when the caller is not running inside one.
func TransactionFromContext(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	if !ok {
		return nil
	}
	return tx
}

// ContextWithTransaction returns a child context whose Database calls
// run on tx. Storing a nil tx detaches the context from any enclosing
// transaction, which is how the audit trail escapes rollbacks.
func ContextWithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// getDBFromContext resolves the handle a query runs on: the context's
// transaction when one is present, the base connection otherwise.
func getDBFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := TransactionFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
