package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

var (
	errNilStore     = errors.New("rate limiter store is nil")
	errEmptySubject = errors.New("login subject is empty")
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
	Reset(ctx context.Context, keys ...string) error
}

type window struct {
	prefix string
	span   time.Duration
	limit  int64
}

// Limiter throttles admin sign-in attempts per client IP and email pair. Each
// window is a fixed Redis counter that expires with its span.
type Limiter struct {
	store   WindowStore
	windows []window
}

// NewLimiter builds a minute and an hour window. A non-positive limit turns
// that window off.
func NewLimiter(store WindowStore, perMinute, perHour int) *Limiter {
	l := &Limiter{store: store}
	if perMinute > 0 {
		l.windows = append(l.windows, window{prefix: "rate:login:min:", span: time.Minute, limit: int64(perMinute)})
	}
	if perHour > 0 {
		l.windows = append(l.windows, window{prefix: "rate:login:hour:", span: time.Hour, limit: int64(perHour)})
	}
	return l
}

// AllowLogin counts one attempt in every window. When any window is over its
// limit the attempt is refused and retryAfterSec is the longest remaining TTL.
func (l *Limiter) AllowLogin(ctx context.Context, ip, email string) (retryAfterSec int64, allowed bool, err error) {
	subject, err := l.subject(ip, email)
	if err != nil {
		return 0, false, err
	}

	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, w.prefix+subject, w.span)
		if err != nil {
			return 0, false, err
		}
		if count > w.limit {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, retryAfterSec == 0, nil
}

// RetryAfterLogin reports, without counting, how long the next attempt would
// have to wait.
func (l *Limiter) RetryAfterLogin(ctx context.Context, ip, email string) (int64, error) {
	subject, err := l.subject(ip, email)
	if err != nil {
		return 0, err
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, w.prefix+subject)
		if err != nil {
			return 0, err
		}
		if count >= w.limit {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, nil
}

// ResetLogin clears every window after a successful sign-in.
func (l *Limiter) ResetLogin(ctx context.Context, ip, email string) error {
	subject, err := l.subject(ip, email)
	if err != nil {
		return err
	}
	if len(l.windows) == 0 {
		return nil
	}

	keys := make([]string, 0, len(l.windows))
	for _, w := range l.windows {
		keys = append(keys, w.prefix+subject)
	}
	return l.store.Reset(ctx, keys...)
}

// subject hashes the pair so raw emails never appear in Redis keys.
func (l *Limiter) subject(ip, email string) (string, error) {
	if l.store == nil {
		return "", errNilStore
	}
	ip = strings.TrimSpace(ip)
	email = strings.ToLower(strings.TrimSpace(email))
	if ip == "" && email == "" {
		return "", errEmptySubject
	}
	sum := sha256.Sum256([]byte(ip + "|" + email))
	return hex.EncodeToString(sum[:16]), nil
}

// ceilSeconds rounds a TTL up so a client never retries a moment too early.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
