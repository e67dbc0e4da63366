package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
)

// RedisKeyPrefix prefixes the sorted set holding one key's window.
const RedisKeyPrefix = "vocab:rate_limit:"

// admitScript prunes, counts and pushes in one step so concurrent processes
// never observe a half-updated window.
//
// KEYS[1] window set; ARGV: now ms, window ms, max requests, member.
// Returns 0 when admitted, otherwise the wait in milliseconds.
var admitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local size = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - size)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	if #oldest == 0 then
		return size
	end
	local wait = size - (now - tonumber(oldest[2]))
	if wait < 1 then
		wait = 1
	end
	return wait
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], size)
return 0
`)

// RedisLimiter shares sliding windows across processes through Redis.
type RedisLimiter struct {
	redis  *redis.Client
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *RedisLimiter {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisLimiter{
		redis:  redisClient,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source.
func (l *RedisLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Admit implements Admitter.
func (l *RedisLimiter) Admit(ctx context.Context, key string) error {
	policy := l.cfg.PolicyFor(key)
	now := l.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	waitMs, err := admitScript.Run(ctx, l.redis,
		[]string{RedisKeyPrefix + key},
		now, policy.Window.Milliseconds(), policy.MaxRequests, member,
	).Int64()
	if err != nil {
		return fmt.Errorf("rate limit admit %s: %w", key, err)
	}

	if waitMs > 0 {
		rateLimitRejected.WithLabelValues(key).Inc()
		retryAfter := time.Duration(waitMs) * time.Millisecond
		l.logger.Warn().
			Str("key", key).
			Dur("retry_after", retryAfter).
			Msg("Rate limit exceeded")
		return apierr.RateLimited(key, retryAfter)
	}

	rateLimitAdmitted.WithLabelValues(key).Inc()
	return nil
}

// Reset clears the window of one key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, RedisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset rate limit %s: %w", key, err)
	}
	return nil
}

// ResetAll clears every window under RedisKeyPrefix.
func (l *RedisLimiter) ResetAll(ctx context.Context) error {
	iter := l.redis.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := l.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("reset rate limit %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan rate limit keys: %w", err)
	}
	return nil
}
