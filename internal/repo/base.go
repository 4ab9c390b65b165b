package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle shared by the order, ledger, and lookup
// repositories. Repositories embed it and reach the database through DB.
type Base struct {
	db *gorm.DB
}

// NewBase wraps a GORM connection (or an open transaction) for embedding.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB binds the connection to ctx so cancellation propagates to queries.
// A nil context returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
