package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitStore counts requests per (identity, window). Implementations
// must be safe for concurrent use. Incr returns the count within the
// current window after recording the request.
type RateLimitStore interface {
	Incr(ctx context.Context, identity string, window time.Duration) (int64, error)
}

// RedisRateLimitStore is the shared-state implementation. Keys are bucketed
// by window start so counters reset without an explicit sweep.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisRateLimitStore) Incr(ctx context.Context, identity string, window time.Duration) (int64, error) {
	bucket := time.Now().Unix() / int64(window.Seconds())
	key := fmt.Sprintf("%s%s:%d", s.prefix, identity, bucket)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit incr error: %w", err)
	}

	return incr.Val(), nil
}

// MemoryRateLimitStore is the single-process fallback used when Redis is
// not configured. Stale buckets are dropped lazily on access.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
}

type memoryBucket struct {
	windowStart int64
	count       int64
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{buckets: make(map[string]*memoryBucket)}
}

func (s *MemoryRateLimitStore) Incr(_ context.Context, identity string, window time.Duration) (int64, error) {
	bucket := time.Now().Unix() / int64(window.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[identity]
	if !ok || b.windowStart != bucket {
		b = &memoryBucket{windowStart: bucket}
		s.buckets[identity] = b
	}
	b.count++
	return b.count, nil
}
