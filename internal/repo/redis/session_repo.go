package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
)

const (
	sessionPrefix       = "admin:session:"
	refreshPrefix       = "admin:refresh:"
	adminSessionsPrefix = "admin:sessions_of:"
)

// sessionHash is the stored form of a session. The same shape backs both the
// session key and the refresh key; only the refresh key's digest lives in
// Redis, never the token itself.
type sessionHash struct {
	SID           string `redis:"sid"`
	UserID        string `redis:"user_id"`
	Role          string `redis:"role"`
	ExpiresAt     int64  `redis:"expires_at"`
	RefreshDigest string `redis:"refresh_digest"`
}

func (h sessionHash) record() (authsvc.SessionRecord, error) {
	if strings.TrimSpace(h.UserID) == "" || strings.TrimSpace(h.SID) == "" || h.ExpiresAt <= 0 {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}
	return authsvc.SessionRecord{
		SID:       h.SID,
		UserID:    h.UserID,
		Role:      h.Role,
		ExpiresAt: time.Unix(h.ExpiresAt, 0).UTC(),
	}, nil
}

// SessionRepo keeps admin sessions in Redis. Every key expires with the
// refresh token, so abandoned sessions need no sweeping.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(session.UserID) == "" || strings.TrimSpace(refreshToken) == "" {
		return authsvc.ErrInvalidInput
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		r.writeSession(ctx, pipe, session, refreshDigest(refreshToken))
		return nil
	})
	if err != nil {
		return fmt.Errorf("create admin session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, errNilClient
	}
	h, err := r.load(ctx, sessionKey(sid))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
		}
		return authsvc.SessionRecord{}, fmt.Errorf("get admin session: %w", err)
	}
	return h.record()
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, errNilClient
	}
	h, err := r.load(ctx, refreshKey(refreshDigest(refreshToken)))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
		}
		return authsvc.SessionRecord{}, fmt.Errorf("get refresh token: %w", err)
	}
	session, err := h.record()
	if err != nil {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	return session, nil
}

// RotateRefresh swaps the refresh token of sid and extends the session to
// expiresAt. The old token stops working immediately.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(newRefreshToken) == "" {
		return authsvc.ErrInvalidInput
	}

	session, err := r.GetByRefreshToken(ctx, oldRefreshToken)
	if err != nil {
		return err
	}
	if sid != "" && sid != session.SID {
		return authsvc.ErrRefreshNotFound
	}
	session.ExpiresAt = expiresAt

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, refreshKey(refreshDigest(oldRefreshToken)))
		r.writeSession(ctx, pipe, session, refreshDigest(newRefreshToken))
		return nil
	})
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	h, err := r.load(ctx, sessionKey(sid))
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load admin session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sid))
		if h.RefreshDigest != "" {
			pipe.Del(ctx, refreshKey(h.RefreshDigest))
		}
		if h.UserID != "" {
			pipe.SRem(ctx, adminSessionsKey(h.UserID), sid)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(userID) == "" {
		return authsvc.ErrInvalidInput
	}

	sids, err := r.client.SMembers(ctx, adminSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list admin sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, adminSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete admin sessions index: %w", err)
	}
	return nil
}

func (r *SessionRepo) writeSession(ctx context.Context, pipe goredis.Pipeliner, session authsvc.SessionRecord, digest string) {
	ttl := ttlFor(session.ExpiresAt)
	h := sessionHash{
		SID:           session.SID,
		UserID:        session.UserID,
		Role:          session.Role,
		ExpiresAt:     session.ExpiresAt.Unix(),
		RefreshDigest: digest,
	}

	pipe.HSet(ctx, sessionKey(session.SID), h)
	pipe.Expire(ctx, sessionKey(session.SID), ttl)
	pipe.HSet(ctx, refreshKey(digest), h)
	pipe.Expire(ctx, refreshKey(digest), ttl)
	pipe.SAdd(ctx, adminSessionsKey(session.UserID), session.SID)
	pipe.Expire(ctx, adminSessionsKey(session.UserID), ttl)
}

// load returns goredis.Nil when key does not exist.
func (r *SessionRepo) load(ctx context.Context, key string) (sessionHash, error) {
	cmd := r.client.HGetAll(ctx, key)
	values, err := cmd.Result()
	if err != nil {
		return sessionHash{}, err
	}
	if len(values) == 0 {
		return sessionHash{}, goredis.Nil
	}
	var h sessionHash
	if err := cmd.Scan(&h); err != nil {
		return sessionHash{}, fmt.Errorf("decode session hash: %w", err)
	}
	return h, nil
}

func refreshDigest(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

func sessionKey(sid string) string {
	return sessionPrefix + sid
}

func refreshKey(digest string) string {
	return refreshPrefix + digest
}

func adminSessionsKey(userID string) string {
	return adminSessionsPrefix + userID
}
