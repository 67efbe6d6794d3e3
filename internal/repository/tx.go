package repository

import (
	"context"

	"gorm.io/gorm"
)

// RunTx executes fn inside a transaction bound to ctx. The transaction commits
// when fn returns nil and rolls back on error, panic or context cancellation.
func RunTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
