package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/cache"
	"github.com/Sternrassler/vocab-enricher/pkg/config"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
	"github.com/Sternrassler/vocab-enricher/pkg/logging"
	"github.com/Sternrassler/vocab-enricher/pkg/providers"
	"github.com/Sternrassler/vocab-enricher/pkg/ratelimit"
	"github.com/Sternrassler/vocab-enricher/pkg/resolver"
	"github.com/Sternrassler/vocab-enricher/pkg/retry"
)

// app is the wired enrichment pipeline.
type app struct {
	cfg      *config.Config
	store    *cache.Store
	resolver *resolver.Resolver
	enricher *enrichment.Enricher
	redis    *redis.Client
	logger   zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger("vocab"),
	}

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = cache.NewStore(backend, logging.NewLogger(logging.ComponentCache))

	limiter, err := a.newLimiter(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	registry, err := providers.NewRegistry(cfg.ProviderSettings())
	if err != nil {
		a.Close()
		return nil, err
	}

	executor := retry.New(cfg.RetryPolicy(), logging.NewLogger(logging.ComponentRetry))
	a.resolver = resolver.New(registry, limiter, executor, a.store, cfg.ResolverConfig(),
		logging.NewLogger(logging.ComponentResolver))
	a.enricher = enrichment.New(a.resolver, a.store, cfg.EnrichmentOptions(),
		logging.NewLogger(logging.ComponentEnrichment))

	return a, nil
}

func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := connectRedis(ctx, a.cfg.Cache.Redis, a.logger)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return client, nil
}

func (a *app) openBackend(ctx context.Context) (cache.Backend, error) {
	switch a.cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryBackend(), nil
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisBackend(client), nil
	case "sqlite":
		return cache.OpenSQL(ctx, cache.DialectSQLite, a.cfg.Cache.SQL.DSN)
	case "mysql":
		return cache.OpenSQL(ctx, cache.DialectMySQL, a.cfg.Cache.SQL.DSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}
}

func (a *app) newLimiter(ctx context.Context) (ratelimit.Admitter, error) {
	logger := logging.NewLogger(logging.ComponentRateLimit)
	switch a.cfg.RateLimit.Backend {
	case "memory":
		return ratelimit.NewLimiter(a.cfg.RateLimitPolicies(), logger), nil
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return ratelimit.NewRedisLimiter(client, a.cfg.RateLimitPolicies(), logger), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", a.cfg.RateLimit.Backend)
	}
}

// Close releases the cache backend and the redis connection.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
