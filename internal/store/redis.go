package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/layout-library/backend/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// AccountBackend is the account persistence wrapped by the cache.
type AccountBackend interface {
	Create(ctx context.Context, acc *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByRole(ctx context.Context, role models.Role) (*models.Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, id string, upd models.AccountUpdate) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// CachedAccountStore caches FindByID results in Redis. Entries live under
// a per-account generation; every write through the store advances the
// generation, so a deactivation is seen by the next request even when a
// slower reader stores an older copy. Redis read failures fall back to the
// backend.
type CachedAccountStore struct {
	AccountBackend
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedAccountStore(backend AccountBackend, rdb *redis.Client, ttl time.Duration) *CachedAccountStore {
	return &CachedAccountStore{AccountBackend: backend, rdb: rdb, ttl: ttl}
}

func accountKey(id string, generation int64) string {
	return fmt.Sprintf("account:%s:%d", id, generation)
}

func generationKey(id string) string { return "account:" + id + ":gen" }

// FindByID reads the generation before the backend. A copy loaded ahead of
// a concurrent write is stored under a generation readers no longer use.
func (s *CachedAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	gen, err := s.rdb.Get(ctx, generationKey(id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "account cache read failed", "id", id, "error", err)
		return s.AccountBackend.FindByID(ctx, id)
	}
	key := accountKey(id, gen)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var acc models.Account
		if err := json.Unmarshal(raw, &acc); err == nil {
			return &acc, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "account cache read failed", "id", id, "error", err)
	}

	acc, err := s.AccountBackend.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// the hash is tagged json:"-" so it never reaches the cache
	if b, err := json.Marshal(acc); err == nil {
		if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "account cache write failed", "id", id, "error", err)
		}
	}
	return acc, nil
}

// Update writes through to the backend and then retires the cached copy.
// If the cache cannot be invalidated the change is stored but an error is
// returned, since cached reads could still see the old role or status.
func (s *CachedAccountStore) Update(ctx context.Context, id string, upd models.AccountUpdate) (*models.Account, error) {
	acc, err := s.AccountBackend.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, id); err != nil {
		return nil, err
	}
	return acc, nil
}

// TouchLastLogin only changes lastLogin, so a failed invalidation is logged.
func (s *CachedAccountStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.AccountBackend.TouchLastLogin(ctx, id, at); err != nil {
		return err
	}
	if err := s.invalidate(ctx, id); err != nil {
		slog.WarnContext(ctx, "account cache invalidate failed", "id", id, "error", err)
	}
	return nil
}

func (s *CachedAccountStore) invalidate(ctx context.Context, id string) error {
	if err := s.rdb.Incr(ctx, generationKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate cached account %s: %w", id, err)
	}
	return nil
}
