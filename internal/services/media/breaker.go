package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// BreakerStorage fails fast with ErrStorageUnavailable once the wrapped
// storage keeps erroring, until a half-open trial request succeeds.
type BreakerStorage struct {
	inner ObjectStorage
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerStorage(inner ObjectStorage, logger *zap.Logger) *BreakerStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "object-storage",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrValidation) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerStorage{inner: inner, cb: cb}
}

func (b *BreakerStorage) EnsureBucket(ctx context.Context) error {
	return b.run(func() error { return b.inner.EnsureBucket(ctx) })
}

func (b *BreakerStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return b.run(func() error { return b.inner.Put(ctx, key, body, size, contentType) })
}

func (b *BreakerStorage) Delete(ctx context.Context, key string) error {
	return b.run(func() error { return b.inner.Delete(ctx, key) })
}

func (b *BreakerStorage) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStorage) run(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
