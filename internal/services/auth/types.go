package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrAccountLocked   = errors.New("account locked")
	ErrTOTPRequired    = errors.New("totp code required")
	ErrTOTPNotPending  = errors.New("totp setup was not started")
	ErrTOTPEnabled     = errors.New("totp is already enabled")
	ErrUserNotFound    = errors.New("admin user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrRateLimited     = errors.New("too many login attempts")
)

// RateLimitError wraps ErrRateLimited with the wait the client should honour.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

type SessionRecord struct {
	SID       string
	UserID    string
	Role      string
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    string
	SID       string
	Role      string
	ExpiresAt time.Time
}

type AdminInfo struct {
	ID          string
	Email       string
	Role        string
	TOTPEnabled bool
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	Admin         AdminInfo
}

type LoginInput struct {
	Email    string
	Password string
	TOTPCode string
	IP       string
}

type TOTPSetup struct {
	Secret     string
	OTPAuthURL string
	QRCodePNG  []byte
}
