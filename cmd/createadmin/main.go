// Command createadmin creates the default admin account if no admin exists.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ayush/layout-library/backend/internal/app"
	"github.com/ayush/layout-library/backend/internal/auth"
	"github.com/ayush/layout-library/backend/internal/config"
	"github.com/ayush/layout-library/backend/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("createadmin", cfg.Development())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	admin, created, err := auth.EnsureDefaultAdmin(ctx, stores.Accounts, auth.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		slog.Error("create admin", "error", err)
		os.Exit(1)
	}
	if !created {
		fmt.Println("Admin user already exists:", admin.Email)
		return
	}
	fmt.Println("Default admin created successfully")
	fmt.Println("Email:", admin.Email)
}
