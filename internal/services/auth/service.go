package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/model"
)

const (
	MinRefreshTTL = 24 * time.Hour
	MaxRefreshTTL = 30 * 24 * time.Hour

	defaultMaxAttempts  = 5
	defaultLockDuration = 15 * time.Minute
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.AdminUser, error)
	ResetFailures(ctx context.Context, id uuid.UUID, loginAt time.Time) error
	MarkFailure(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (bool, error)
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string, enabled bool) error
}

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type LoginLimiter interface {
	AllowLogin(ctx context.Context, ip, email string) (int64, bool, error)
	ResetLogin(ctx context.Context, ip, email string) error
}

type Options struct {
	RefreshTTL   time.Duration
	MaxAttempts  int
	LockDuration time.Duration
	TOTPIssuer   string
}

type Service struct {
	users        UserStore
	sessions     SessionStore
	jwt          *JWTManager
	limiter      LoginLimiter
	secrets      *SecretCipher
	logger       *zap.Logger
	refreshTTL   time.Duration
	maxAttempts  int
	lockDuration time.Duration
	totpIssuer   string
	now          func() time.Time
}

func NewService(users UserStore, sessions SessionStore, jwtManager *JWTManager, opts Options, logger *zap.Logger) *Service {
	if opts.RefreshTTL < MinRefreshTTL {
		opts.RefreshTTL = MinRefreshTTL
	}
	if opts.RefreshTTL > MaxRefreshTTL {
		opts.RefreshTTL = MaxRefreshTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = defaultLockDuration
	}
	if strings.TrimSpace(opts.TOTPIssuer) == "" {
		opts.TOTPIssuer = "Portfolio Admin"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		users:        users,
		sessions:     sessions,
		jwt:          jwtManager,
		logger:       logger,
		refreshTTL:   opts.RefreshTTL,
		maxAttempts:  opts.MaxAttempts,
		lockDuration: opts.LockDuration,
		totpIssuer:   opts.TOTPIssuer,
		now:          time.Now,
	}
}

func (s *Service) AttachLimiter(limiter LoginLimiter) {
	s.limiter = limiter
}

// AttachSecretCipher enables TOTP enrolment; without it TOTP setup is refused.
func (s *Service) AttachSecretCipher(cipher *SecretCipher) {
	s.secrets = cipher
}

func (s *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return AuthResult{}, ErrInvalidInput
	}

	if err := s.checkLoginRate(ctx, in.IP, email); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			burnPasswordCheck(in.Password)
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("find admin user: %w", err)
	}

	now := s.now().UTC()
	if !user.IsActive {
		burnPasswordCheck(in.Password)
		return AuthResult{}, ErrUnauthorized
	}
	if user.LockedAt(now) {
		return AuthResult{}, ErrAccountLocked
	}

	if !CheckPassword(user.PasswordHash, in.Password) {
		return AuthResult{}, s.recordFailure(ctx, user, now)
	}

	if user.TOTPEnabled {
		if strings.TrimSpace(in.TOTPCode) == "" {
			return AuthResult{}, ErrTOTPRequired
		}
		secret, err := s.openSecret(user.TOTPSecret)
		if err != nil {
			return AuthResult{}, err
		}
		if !validTOTP(secret, in.TOTPCode, now) {
			return AuthResult{}, s.recordFailure(ctx, user, now)
		}
	}

	if err := s.users.ResetFailures(ctx, user.ID, now); err != nil {
		return AuthResult{}, fmt.Errorf("reset login failures: %w", err)
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(ctx, in.IP, email); err != nil {
			s.logger.Warn("reset login rate window failed", zap.Error(err))
		}
	}

	s.logger.Info("admin login", zap.String("admin_id", user.ID.String()), zap.String("ip", in.IP))
	return s.issueForUser(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	user, err := s.activeUser(ctx, session.UserID)
	if err != nil {
		return AuthResult{}, err
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.SignAccess(AccessGrant{AdminID: session.UserID, SessionID: session.SID, Role: session.Role})
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Admin:         adminInfo(user),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// ValidateAccessToken checks the token signature and that its session was not
// revoked by logout.
func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.VerifyAccess(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID || session.Role != claims.Role {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) Me(ctx context.Context, userID string) (AdminInfo, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return AdminInfo{}, err
	}
	return adminInfo(user), nil
}

// BeginTOTPSetup stores a fresh, not yet enabled secret and returns what an
// authenticator app needs to enrol it.
func (s *Service) BeginTOTPSetup(ctx context.Context, userID string) (TOTPSetup, error) {
	if s.secrets == nil {
		return TOTPSetup{}, fmt.Errorf("totp secret cipher is not configured")
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return TOTPSetup{}, err
	}

	// Re-enrolling would overwrite the active secret and switch the second
	// factor off without a code.
	if user.TOTPEnabled {
		return TOTPSetup{}, ErrTOTPEnabled
	}

	setup, err := newTOTPEnrolment(s.totpIssuer, user.Email)
	if err != nil {
		return TOTPSetup{}, err
	}
	sealed, err := s.secrets.Seal(setup.Secret)
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("seal totp secret: %w", err)
	}
	if err := s.users.SetTOTPSecret(ctx, user.ID, sealed, false); err != nil {
		return TOTPSetup{}, fmt.Errorf("store totp secret: %w", err)
	}
	return setup, nil
}

func (s *Service) EnableTOTP(ctx context.Context, userID, code string) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrTOTPNotPending
	}

	secret, err := s.openSecret(user.TOTPSecret)
	if err != nil {
		return err
	}
	if !validTOTP(secret, code, s.now().UTC()) {
		return ErrInvalidInput
	}

	if err := s.users.SetTOTPSecret(ctx, user.ID, user.TOTPSecret, true); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

func (s *Service) checkLoginRate(ctx context.Context, ip, email string) error {
	if s.limiter == nil {
		return nil
	}
	retryAfter, allowed, err := s.limiter.AllowLogin(ctx, ip, email)
	if err != nil {
		// Redis being down must not lock the owner out of the panel.
		s.logger.Warn("login rate check failed", zap.Error(err))
		return nil
	}
	if !allowed {
		return &RateLimitError{RetryAfter: time.Duration(retryAfter) * time.Second}
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, user model.AdminUser, now time.Time) error {
	locked, err := s.users.MarkFailure(ctx, user.ID, s.maxAttempts, now.Add(s.lockDuration))
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	if locked {
		s.logger.Warn("admin account locked", zap.String("admin_id", user.ID.String()))
		return ErrAccountLocked
	}
	return ErrUnauthorized
}

func (s *Service) activeUser(ctx context.Context, userID string) (model.AdminUser, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return model.AdminUser{}, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return model.AdminUser{}, ErrUnauthorized
		}
		return model.AdminUser{}, fmt.Errorf("find admin user: %w", err)
	}
	if !user.IsActive {
		return model.AdminUser{}, ErrForbidden
	}
	return user, nil
}

func (s *Service) openSecret(sealed string) (string, error) {
	if s.secrets == nil {
		return "", fmt.Errorf("totp secret cipher is not configured")
	}
	secret, err := s.secrets.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("open totp secret: %w", err)
	}
	return secret, nil
}

func (s *Service) issueForUser(ctx context.Context, user model.AdminUser) (AuthResult, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	userID := user.ID.String()
	role := string(user.Role)
	session := SessionRecord{
		SID:       sessionID,
		UserID:    userID,
		Role:      role,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.SignAccess(AccessGrant{AdminID: userID, SessionID: sessionID, Role: role})
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Admin:         adminInfo(user),
	}, nil
}

func adminInfo(user model.AdminUser) AdminInfo {
	return AdminInfo{
		ID:          user.ID.String(),
		Email:       user.Email,
		Role:        string(user.Role),
		TOTPEnabled: user.TOTPEnabled,
	}
}
