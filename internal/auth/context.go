package auth

import (
	"context"

	"github.com/ayush/layout-library/backend/internal/models"
)

type ctxKey struct{}

// WithAccount returns a context carrying the authenticated account.
func WithAccount(ctx context.Context, acc *models.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, acc)
}

// AccountFrom returns the authenticated account, or nil.
func AccountFrom(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(ctxKey{}).(*models.Account)
	return acc
}
