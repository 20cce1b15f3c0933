// Package app opens the stores selected by configuration. It is shared by
// the server and the maintenance commands.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/layout-library/backend/internal/auth"
	"github.com/ayush/layout-library/backend/internal/config"
	"github.com/ayush/layout-library/backend/internal/layouts"
	"github.com/ayush/layout-library/backend/internal/store"
)

// Stores bundles the opened backends.
type Stores struct {
	Accounts auth.AccountStore
	Layouts  *store.MongoLayoutStore
	Files    layouts.FileStore

	closers []func(context.Context)
}

// Open connects to MongoDB and to the optional PostgreSQL, Redis and MinIO
// backends, and creates missing indexes and tables.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	s.closers = append(s.closers, func(ctx context.Context) { mongoClient.Disconnect(ctx) })
	if err := mongoClient.Ping(ctx, nil); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	mongoDB := mongoClient.Database(cfg.MongoDB)
	s.Layouts = store.NewMongoLayoutStore(mongoDB)
	if err := s.Layouts.Migrate(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}

	// ── Accounts: PostgreSQL or MongoDB ──────────────────────
	var accounts store.AccountBackend
	if cfg.PostgresDSN != "" {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) { pgPool.Close() })
		pgStore := store.NewPostgresAccountStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		accounts = pgStore
		slog.Info("accounts stored in postgres")
	} else {
		mongoAccounts := store.NewMongoAccountStore(mongoDB)
		if err := mongoAccounts.Migrate(ctx); err != nil {
			s.Close(ctx)
			return nil, err
		}
		accounts = mongoAccounts
		slog.Info("accounts stored in mongo")
	}

	// ── Redis account cache ──────────────────────────────────
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) { rdb.Close() })
		accounts = store.NewCachedAccountStore(accounts, rdb, cfg.AccountCacheTTL)
		slog.Info("account cache enabled", "ttl", cfg.AccountCacheTTL)
	}
	s.Accounts = accounts

	// ── Files: MinIO or local disk ───────────────────────────
	if cfg.MinioEndpoint != "" {
		minioStore, err := store.NewMinioFileStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.Files = minioStore
		slog.Info("uploads stored in minio", "bucket", cfg.MinioBucket)
	} else {
		s.Files = store.NewDiskFileStore(cfg.UploadDir)
		slog.Info("uploads stored on disk", "dir", cfg.UploadDir)
	}

	return s, nil
}

// Close releases every opened backend in reverse order.
func (s *Stores) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	s.closers = nil
}
