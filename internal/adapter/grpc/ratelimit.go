package grpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per key over a fixed window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps the windows in process
type MemoryLimiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(limit int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.interval {
		l.prune(now)
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}

// prune drops expired windows; caller holds mu
func (l *MemoryLimiter) prune(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.interval {
			delete(l.windows, key)
		}
	}
}

// counter is the part of redis.Cmdable the limiter uses
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter shares the windows between server instances.
// Every INCR is followed by EXPIRE NX: a key left without a TTL gets one on
// its next request. EXPIRE NX needs Redis 7.
type RedisLimiter struct {
	client   counter
	limit    int
	interval time.Duration
	prefix   string
}

func NewRedisLimiter(client redis.Cmdable, limit int, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		limit:    limit,
		interval: interval,
		prefix:   "budgetline:ratelimit:",
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if err := l.client.ExpireNX(ctx, k, l.interval).Err(); err != nil {
		return false, fmt.Errorf("expire %s: %w", k, err)
	}
	return n <= int64(l.limit), nil
}
