// Package ratelimit limits how often a key may perform an action within a
// sliding window, in memory or shared through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter records one attempt for key and reports whether it is allowed.
type Limiter interface {
	Take(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-key sliding window kept in process memory.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]int64
}

// NewMemoryLimiter allows limit attempts per key within window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]int64),
	}
}

// Take implements Limiter.
func (m *MemoryLimiter) Take(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixNano()
	reqs := m.cleanup(key, now)
	if len(reqs) >= m.limit {
		return false, nil
	}
	m.requests[key] = append(reqs, now)
	return true, nil
}

// Reset forgets every attempt recorded for key.
func (m *MemoryLimiter) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, key)
}

// cleanup drops timestamps outside the window.
func (m *MemoryLimiter) cleanup(key string, now int64) []int64 {
	reqs := m.requests[key]
	cutoff := now - m.window.Nanoseconds()
	idx := 0
	for idx < len(reqs) && reqs[idx] <= cutoff {
		idx++
	}
	if idx == len(reqs) {
		delete(m.requests, key)
		return nil
	}
	return reqs[idx:]
}

// Uses a sorted set per key; the script keeps check-and-add atomic.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {0, count}
end
redis.call('ZADD', key, now, now)
redis.call('PEXPIRE', key, math.ceil(window/1000000))
return {1, count + 1}
`)

// RedisLimiter is a sliding window shared by every console instance.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit attempts per key within window.
func NewRedisLimiter(client redis.Scripter, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Take implements Limiter.
func (r *RedisLimiter) Take(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{fmt.Sprintf("%s:ratelimit:%s", r.prefix, key)},
		now, r.window.Nanoseconds(), r.limit).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return false, fmt.Errorf("unexpected redis script result: %v", res)
	}
	allowed, _ := vals[0].(int64)
	return allowed == 1, nil
}
