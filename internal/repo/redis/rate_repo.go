package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// incrementWindowScript bumps the counter and, on the first hit, starts the
// window. It returns the count and the remaining TTL in milliseconds.
var incrementWindowScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// RateRepo keeps fixed counting windows for the login limiter.
type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

func (r *RateRepo) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, errNilClient
	}
	if key == "" || window <= 0 {
		return 0, 0, fmt.Errorf("rate window needs a key and a positive span")
	}

	values, err := incrementWindowScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("increment rate window %s: %w", key, err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("increment rate window %s: unexpected reply %v", key, values)
	}
	return values[0], remaining(time.Duration(values[1]) * time.Millisecond), nil
}

// WindowState reads a window without counting. A missing key is an empty window.
func (r *RateRepo) WindowState(ctx context.Context, key string) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, errNilClient
	}
	if key == "" {
		return 0, 0, fmt.Errorf("rate window key is required")
	}

	var (
		countCmd *goredis.StringCmd
		ttlCmd   *goredis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		countCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, 0, fmt.Errorf("read rate window %s: %w", key, err)
	}

	count, err := countCmd.Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("parse rate window %s: %w", key, err)
	}
	return count, remaining(ttlCmd.Val()), nil
}

func (r *RateRepo) Reset(ctx context.Context, keys ...string) error {
	if r.client == nil {
		return errNilClient
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset rate windows: %w", err)
	}
	return nil
}

// remaining maps Redis' negative TTL markers (no key, no expiry) to zero.
func remaining(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}
