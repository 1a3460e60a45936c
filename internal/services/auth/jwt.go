package auth

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL = 15 * time.Minute
	defaultIssuer    = "portfolio"
)

// AccessGrant is what an access token vouches for.
type AccessGrant struct {
	AdminID   string
	SessionID string
	Role      string
}

// JWTManager signs and verifies HS256 admin access tokens.
type JWTManager struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

type adminClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTManager(secret, issuer string, accessTTL time.Duration) *JWTManager {
	m := &JWTManager{
		key:    []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    accessTTL,
		now:    time.Now,
	}
	if m.ttl <= 0 {
		m.ttl = defaultAccessTTL
	}
	if m.issuer == "" {
		m.issuer = defaultIssuer
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m
}

func (m *JWTManager) SignAccess(grant AccessGrant) (string, time.Time, error) {
	switch {
	case len(m.key) == 0:
		return "", time.Time{}, fmt.Errorf("jwt secret is empty")
	case strings.TrimSpace(grant.AdminID) == "", strings.TrimSpace(grant.SessionID) == "":
		return "", time.Time{}, fmt.Errorf("access grant needs admin and session ids")
	}

	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		SessionID: grant.SessionID,
		Role:      grant.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   grant.AdminID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccess checks signature, issuer and expiry. Any failure is reported as
// ErrUnauthorized so callers cannot tell a forged token from an expired one.
func (m *JWTManager) VerifyAccess(raw string) (AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AccessClaims{}, ErrUnauthorized
	}

	var claims adminClaims
	if _, err := m.parser.ParseWithClaims(raw, &claims, m.keyFunc); err != nil {
		return AccessClaims{}, ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.Subject); err != nil || strings.TrimSpace(claims.SessionID) == "" {
		return AccessClaims{}, ErrUnauthorized
	}

	return AccessClaims{
		UserID:    claims.Subject,
		SID:       claims.SessionID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *JWTManager) keyFunc(*jwt.Token) (interface{}, error) {
	return m.key, nil
}
