package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context plus an optional transaction handle.
// Repos use Tx when set and fall back to their own *gorm.DB otherwise, so
// the same repo methods work inside and outside a transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
