package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Connect retries op with exponential backoff until it succeeds, maxElapsed
// passes or ctx is done. Used for dependencies that may start after the API.
func Connect(ctx context.Context, name string, maxElapsed time.Duration, logger *zap.Logger, op func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(ctx)
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("dependency not ready",
			zap.String("dependency", name),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	})
}

// Permanent stops Connect from retrying err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
