package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then records the attempt
// only if the remaining count is below the limit. Returns 1 when allowed.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return 0
	end

	local seq = redis.call('INCR', counter_key)
	redis.call('ZADD', key, now, now .. ':' .. seq)
	redis.call('PEXPIRE', key, window_ms)
	redis.call('PEXPIRE', counter_key, window_ms)
	return 1
`)

// RedisLimiter shares attempt counters between auth-service replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "auth:ratelimit:",
	}
}

// Allow fails open: when Redis is unreachable the attempt is let through and
// the error is logged.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	allowed, err := l.check(ctx, key)
	if err != nil {
		slog.Error("rate limiter unavailable", "error", err)
		return true
	}
	return allowed
}

func (l *RedisLimiter) check(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := l.prefix + key

	res, err := slidingWindow.Run(ctx, l.client, []string{redisKey, redisKey + ":seq"},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("run rate limit script: %w", err)
	}
	return res == 1, nil
}
