package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayush/layout-library/backend/internal/app"
	"github.com/ayush/layout-library/backend/internal/auth"
	"github.com/ayush/layout-library/backend/internal/config"
	"github.com/ayush/layout-library/backend/internal/logging"
	"github.com/ayush/layout-library/backend/internal/middleware"
	"github.com/ayush/layout-library/backend/internal/respond"
	"github.com/ayush/layout-library/backend/internal/router"
)

func main() {
	cfg := config.Load()
	logging.Setup("layout-library", cfg.Development())
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	respond.ExposeErrorDetail(cfg.Development())
	ctx := context.Background()

	// ── Stores ───────────────────────────────────────────────
	stores, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	// ── Default admin ────────────────────────────────────────
	admin, created, err := auth.EnsureDefaultAdmin(ctx, stores.Accounts, auth.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	switch {
	case err != nil:
		slog.Error("create default admin", "error", err)
	case created:
		slog.Info("default admin created", "email", admin.Email)
	}

	// ── Router ───────────────────────────────────────────────
	handler := router.New(router.Deps{
		BasePath:       cfg.BasePath,
		CORSOrigins:    cfg.CORSOrigins,
		MaxFileSize:    cfg.MaxFileSize(),
		Tokens:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Accounts:       stores.Accounts,
		Layouts:        stores.Layouts,
		Files:          stores.Files,
		Metrics:        middleware.NewMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port, "base_path", cfg.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
