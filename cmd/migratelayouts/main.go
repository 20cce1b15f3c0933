// Command migratelayouts assigns the first admin as owner of every layout
// stored without a createdBy reference.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ayush/layout-library/backend/internal/app"
	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/config"
	"github.com/ayush/layout-library/backend/internal/logging"
	"github.com/ayush/layout-library/backend/internal/models"
)

func main() {
	cfg := config.Load()
	logging.Setup("migratelayouts", cfg.Development())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stores, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	admin, err := stores.Accounts.FindByRole(ctx, models.RoleAdmin)
	if errors.Is(err, apperr.ErrNotFound) {
		fmt.Println("No admin user found. Please create an admin user first.")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("find admin", "error", err)
		os.Exit(1)
	}

	n, err := stores.Layouts.AssignMissingOwner(ctx, admin.ID)
	if err != nil {
		slog.Error("migrate layouts", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Updated %d layouts with createdBy field\n", n)
	fmt.Printf("Assigned to admin user: %s (%s)\n", admin.Username, admin.Email)
}
