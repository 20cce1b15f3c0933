package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
)

// AdminSeed describes the account created when no admin exists yet.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureDefaultAdmin creates the seed admin unless an admin already exists.
// It returns the existing or the created admin and whether it was created.
func EnsureDefaultAdmin(ctx context.Context, accounts AccountStore, seed AdminSeed) (*models.Account, bool, error) {
	existing, err := accounts.FindByRole(ctx, models.RoleAdmin)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, fmt.Errorf("find admin: %w", err)
	}

	hashed, err := HashPassword(seed.Password)
	if err != nil {
		return nil, false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.Account{
		Username:  seed.Username,
		Email:     seed.Email,
		Password:  hashed,
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := accounts.Create(ctx, admin); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return admin, true, nil
}
