package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for cache storage.
const (
	RedisKeyPrefix = "vocab:cache:"
	RedisKeyExpiry = "vocab:cache:expiry"
)

// purgeScript deletes every entry whose expiry score is <= ARGV[1] and drops
// the matching index members in one atomic step.
var purgeScript = redis.NewScript(`
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, member in ipairs(members) do
	redis.call('DEL', ARGV[2] .. member)
end
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
return #members
`)

// RedisBackend stores entries as JSON strings with a sorted-set expiry index.
// Keys carry no native Redis TTL: expired entries stay until PurgeExpired so
// the purge can report how many it removed.
type RedisBackend struct {
	redis *redis.Client
}

// NewRedisBackend creates a backend on top of an existing client.
func NewRedisBackend(redisClient *redis.Client) *RedisBackend {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{redis: redisClient}
}

// Load implements Backend.
func (b *RedisBackend) Load(ctx context.Context, key string) (*Entry, error) {
	data, err := b.redis.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

// Save implements Backend. The value and its index member are written in one
// MULTI/EXEC transaction.
func (b *RedisBackend) Save(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	_, err = b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, RedisKeyPrefix+entry.Key, data, 0)
		pipe.ZAdd(ctx, RedisKeyExpiry, redis.Z{
			Score:  float64(entry.ExpiresAt.UnixMilli()),
			Member: entry.Key,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// PurgeExpired implements Backend.
func (b *RedisBackend) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	removed, err := purgeScript.Run(ctx, b.redis,
		[]string{RedisKeyExpiry},
		now.UnixMilli(), RedisKeyPrefix,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("redis purge: %w", err)
	}
	return removed, nil
}

// Close implements Backend. The client is owned by the caller and stays open.
func (b *RedisBackend) Close() error {
	return nil
}
