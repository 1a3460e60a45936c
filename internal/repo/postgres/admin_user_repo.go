package postgres

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

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/domain/model"
	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
)

const adminUserColumns = `id, email, password_hash, role, is_active, failed_login_attempts, locked_until,
       COALESCE(totp_secret, ''), totp_enabled, last_login_at, created_at, updated_at`

type AdminUserRepo struct {
	pool *pgxpool.Pool
}

func NewAdminUserRepo(pool *pgxpool.Pool) *AdminUserRepo {
	return &AdminUserRepo{pool: pool}
}

func (r *AdminUserRepo) FindByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	return r.findOne(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *AdminUserRepo) FindByID(ctx context.Context, id uuid.UUID) (model.AdminUser, error) {
	return r.findOne(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id = $1`, id)
}

// Upsert creates the admin or, when the email exists, replaces its password
// and role and reactivates it.
func (r *AdminUserRepo) Upsert(ctx context.Context, email, passwordHash string, role enums.AdminRole) (model.AdminUser, error) {
	if r.pool == nil {
		return model.AdminUser{}, errNilPool
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO admin_users (email, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE
SET password_hash = EXCLUDED.password_hash,
    role = EXCLUDED.role,
    is_active = TRUE,
    failed_login_attempts = 0,
    locked_until = NULL,
    updated_at = NOW()
RETURNING `+adminUserColumns,
		strings.ToLower(strings.TrimSpace(email)), passwordHash, string(role),
	)
	user, err := scanAdminUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return model.AdminUser{}, fmt.Errorf("%w: %s", authsvc.ErrInvalidInput, pgErr.ConstraintName)
		}
		return model.AdminUser{}, fmt.Errorf("upsert admin user: %w", err)
	}
	return user, nil
}

func (r *AdminUserRepo) ResetFailures(ctx context.Context, id uuid.UUID, loginAt time.Time) error {
	if r.pool == nil {
		return errNilPool
	}

	_, err := r.pool.Exec(ctx, `
UPDATE admin_users
SET failed_login_attempts = 0,
    locked_until = NULL,
    last_login_at = $2,
    updated_at = NOW()
WHERE id = $1
`, id, loginAt)
	if err != nil {
		return fmt.Errorf("reset failed login attempts: %w", err)
	}
	return nil
}

// MarkFailure counts a failed login and sets locked_until once maxAttempts is
// reached. It reports whether the account is locked after the update.
func (r *AdminUserRepo) MarkFailure(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (bool, error) {
	if r.pool == nil {
		return false, errNilPool
	}

	var storedLock *time.Time
	err := r.pool.QueryRow(ctx, `
UPDATE admin_users
SET failed_login_attempts = failed_login_attempts + 1,
    locked_until = CASE
        WHEN failed_login_attempts + 1 >= $2 THEN $3
        ELSE locked_until
    END,
    updated_at = NOW()
WHERE id = $1
RETURNING locked_until
`, id, maxAttempts, lockUntil).Scan(&storedLock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, authsvc.ErrUserNotFound
		}
		return false, fmt.Errorf("mark login failure: %w", err)
	}
	return storedLock != nil && storedLock.After(time.Now().UTC()), nil
}

func (r *AdminUserRepo) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	if r.pool == nil {
		return errNilPool
	}

	res, err := r.pool.Exec(ctx, `
UPDATE admin_users
SET totp_secret = NULLIF($2, ''),
    totp_enabled = $3,
    updated_at = NOW()
WHERE id = $1
`, id, secret, enabled)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	if res.RowsAffected() == 0 {
		return authsvc.ErrUserNotFound
	}
	return nil
}

func (r *AdminUserRepo) findOne(ctx context.Context, query string, arg any) (model.AdminUser, error) {
	if r.pool == nil {
		return model.AdminUser{}, errNilPool
	}

	user, err := scanAdminUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AdminUser{}, authsvc.ErrUserNotFound
		}
		return model.AdminUser{}, fmt.Errorf("query admin user: %w", err)
	}
	return user, nil
}

func scanAdminUser(row pgx.Row) (model.AdminUser, error) {
	var (
		user model.AdminUser
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.IsActive,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.TOTPSecret,
		&user.TOTPEnabled,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return model.AdminUser{}, err
	}
	user.Role = enums.AdminRole(role)
	return user, nil
}
