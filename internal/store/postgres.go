package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
)

const accountColumns = `id, username, email, role, is_active, last_login, created_at`

// PostgresAccountStore handles account CRUD against PostgreSQL.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresAccountStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY,
			username   VARCHAR(50)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			role       VARCHAR(10)  NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
			is_active  BOOLEAN      NOT NULL DEFAULT TRUE,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (s *PostgresAccountStore) Create(ctx context.Context, acc *models.Account) error {
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password, role, is_active, last_login, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, acc.Username, acc.Email, acc.Password, string(acc.Role), acc.IsActive, acc.LastLogin, acc.CreatedAt,
	)
	if err != nil {
		return pgErr("create user", err)
	}
	acc.ID = id
	return nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row, false)
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+`, password FROM users WHERE email = $1`, email)
	return scanAccount(row, true)
}

func (s *PostgresAccountStore) FindByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE role = $1 ORDER BY created_at ASC LIMIT 1`, string(role))
	return scanAccount(row, false)
}

func (s *PostgresAccountStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`, email, username,
	).Scan(&exists)
	if err != nil {
		return false, pgErr("user exists", err)
	}
	return exists, nil
}

func (s *PostgresAccountStore) List(ctx context.Context) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, pgErr("list users", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows, false)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr("list users", err)
	}
	return accounts, nil
}

func (s *PostgresAccountStore) Update(ctx context.Context, id string, upd models.AccountUpdate) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrNotFound
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Password != nil {
		add("password", *upd.Password)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if len(sets) == 0 {
		return s.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), accountColumns)
	return scanAccount(s.pool.QueryRow(ctx, query, args...), false)
}

func (s *PostgresAccountStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return pgErr("touch last login", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row, withPassword bool) (*models.Account, error) {
	var (
		acc  models.Account
		role string
	)
	dest := []any{&acc.ID, &acc.Username, &acc.Email, &role, &acc.IsActive, &acc.LastLogin, &acc.CreatedAt}
	if withPassword {
		dest = append(dest, &acc.Password)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, pgErr("scan user", err)
	}
	acc.Role = models.Role(role)
	return &acc, nil
}

func pgErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == "23505" {
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
