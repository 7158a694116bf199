package database

import (
	"context"

	"gorm.io/gorm"
)

// WithSession runs fn inside one transaction bound to ctx. The transaction
// commits when fn returns nil and rolls back when it returns an error or
// panics; the panic is re-raised after rollback. Either way the connection is
// back in the pool when WithSession returns.
func WithSession(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
