package main

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/config"
)

const (
	redisConnectAttempts = 5
	redisConnectDelay    = 200 * time.Millisecond
)

// connectRedis opens a client and pings it with exponential backoff.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(
		func() error {
			return client.Ping(ctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(redisConnectAttempts),
		retry.Delay(redisConnectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().
				Err(err).
				Str("addr", cfg.Addr).
				Uint("attempt", n+1).
				Msg("Redis not reachable, retrying")
		}),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return client, nil
}
