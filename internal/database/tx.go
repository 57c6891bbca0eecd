package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Conn returns the transaction carried by ctx, or the global handle
func Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return DB.WithContext(ctx)
}

// WithTransaction runs fn inside one transaction. Repositories called with the
// ctx passed to fn join it; a nested call reuses the outer transaction.
func WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
