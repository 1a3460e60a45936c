package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRateRepoWindowLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	repo := NewRateRepo(client)
	ctx := context.Background()
	key := "rate:test:window"

	count, ttl, err := repo.WindowState(ctx, key)
	if err != nil || count != 0 || ttl != 0 {
		t.Fatalf("expected empty window, got count=%d ttl=%s err=%v", count, ttl, err)
	}

	for want := int64(1); want <= 3; want++ {
		count, ttl, err = repo.IncrementWindow(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("increment #%d: %v", want, err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("expected ttl within the window, got %s", ttl)
		}
	}

	count, ttl, err = repo.WindowState(ctx, key)
	if err != nil || count != 3 || ttl <= 0 {
		t.Fatalf("unexpected state count=%d ttl=%s err=%v", count, ttl, err)
	}

	mr.FastForward(61 * time.Second)
	if count, _, err = repo.WindowState(ctx, key); err != nil || count != 0 {
		t.Fatalf("expected window to expire, count=%d err=%v", count, err)
	}

	if _, _, err := repo.IncrementWindow(ctx, key, time.Minute); err != nil {
		t.Fatalf("increment after expiry: %v", err)
	}
	if err := repo.Reset(ctx, key); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected reset to delete %s", key)
	}
}

func TestRateRepoRejectsBadInput(t *testing.T) {
	repo := NewRateRepo(nil)
	if _, _, err := repo.IncrementWindow(context.Background(), "k", time.Minute); !errors.Is(err, errNilClient) {
		t.Fatalf("expected nil client error, got %v", err)
	}

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	repo = NewRateRepo(client)
	if _, _, err := repo.IncrementWindow(context.Background(), "", time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, _, err := repo.IncrementWindow(context.Background(), "k", 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
