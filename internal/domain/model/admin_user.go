package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
)

type AdminUser struct {
	ID             uuid.UUID       `json:"id"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	Role           enums.AdminRole `json:"role"`
	IsActive       bool            `json:"is_active"`
	FailedAttempts int             `json:"-"`
	LockedUntil    *time.Time      `json:"locked_until,omitempty"`
	TOTPSecret     string          `json:"-"`
	TOTPEnabled    bool            `json:"totp_enabled"`
	LastLoginAt    *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (u AdminUser) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
