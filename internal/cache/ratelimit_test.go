package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisRateLimitStoreIncr(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	store := NewRedisRateLimitStore(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "203.0.113.7", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Errorf("Incr = %d, want %d", got, want)
		}
	}

	// Separate identities get separate counters.
	got, err := store.Incr(ctx, "198.51.100.2", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if got != 1 {
		t.Errorf("Incr for new identity = %d, want 1", got)
	}
}

func TestMemoryRateLimitStoreIncr(t *testing.T) {
	store := NewMemoryRateLimitStore()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := store.Incr(ctx, "user:42", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Errorf("Incr = %d, want %d", got, want)
		}
	}

	got, _ := store.Incr(ctx, "user:43", time.Minute)
	if got != 1 {
		t.Errorf("Incr for new identity = %d, want 1", got)
	}
}

func TestMemoryRateLimitStoreConcurrent(t *testing.T) {
	store := NewMemoryRateLimitStore()
	ctx := context.Background()

	const n = 50
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			if _, err := store.Incr(ctx, "shared", time.Minute); err != nil {
				t.Errorf("Incr: %v", err)
			}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	got, err := store.Incr(ctx, "shared", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if got != n+1 {
		t.Errorf("final count = %d, want %d", got, n+1)
	}
}
