// Package resolver resolves each data category through its ordered provider
// chain: cache first, then every configured provider in priority order until
// one yields a usable result.
//
// Every provider invocation passes through rate limit admission, the
// provider's circuit breaker and the retry executor before its response is
// normalized. Providers within a category are tried strictly one after the
// other.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/cache"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
	"github.com/Sternrassler/vocab-enricher/pkg/ratelimit"
	"github.com/Sternrassler/vocab-enricher/pkg/retry"
)

// Config holds the resolver configuration.
type Config struct {
	// TTL is the lifetime of per-category cache entries.
	TTL time.Duration

	Breaker BreakerConfig
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		TTL:     cache.DefaultTTL,
		Breaker: DefaultBreakerConfig(),
	}
}

// Resolver runs the per-category fallback chains.
type Resolver struct {
	registry *provider.Registry
	limiter  ratelimit.Admitter
	executor *retry.Executor
	store    *cache.Store
	breakers *breakers
	ttl      time.Duration
	logger   zerolog.Logger
}

// New creates a resolver.
func New(registry *provider.Registry, limiter ratelimit.Admitter, executor *retry.Executor, store *cache.Store, cfg Config, logger zerolog.Logger) *Resolver {
	if registry == nil || limiter == nil || executor == nil || store == nil {
		panic("resolver: registry, limiter, executor and store are required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultTTL
	}
	return &Resolver{
		registry: registry,
		limiter:  limiter,
		executor: executor,
		store:    store,
		breakers: newBreakers(cfg.Breaker, logger),
		ttl:      cfg.TTL,
		logger:   logger,
	}
}

// Registry returns the provider registry.
func (r *Resolver) Registry() *provider.Registry {
	return r.registry
}

// errSkipped marks a provider that was not attempted.
var errSkipped = errors.New("provider not configured")

// call runs one provider for term: admission, breaker, retried Invoke, Normalize.
func (r *Resolver) call(ctx context.Context, p provider.Provider, term string) (provider.Fragment, error) {
	name := p.Name()
	logger := r.logger.With().
		Str("provider", name).
		Str("category", string(p.Category())).
		Str("term", term).
		Logger()

	if !p.Configured() {
		providerCallsTotal.WithLabelValues(name, outcomeSkipped).Inc()
		logger.Debug().Msg("Provider not configured, skipping")
		return provider.Fragment{}, errSkipped
	}

	if err := r.limiter.Admit(ctx, name); err != nil {
		providerCallsTotal.WithLabelValues(name, outcomeRateLimited).Inc()
		return provider.Fragment{}, err
	}

	start := time.Now()
	raw, err := r.invoke(ctx, p, term)
	providerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			providerCallsTotal.WithLabelValues(name, outcomeBreakerOpen).Inc()
		} else {
			providerCallsTotal.WithLabelValues(name, outcomeError).Inc()
		}
		logger.Warn().Err(err).Msg("Provider failed")
		return provider.Fragment{}, err
	}

	f, err := p.Normalize(raw)
	if err == nil && f.Empty(p.Category()) {
		err = apierr.InvalidResponse(name, fmt.Errorf("empty %s result", p.Category()))
	}
	if err != nil {
		providerCallsTotal.WithLabelValues(name, outcomeInvalid).Inc()
		logger.Warn().Err(err).Msg("Provider response unusable")
		return provider.Fragment{}, err
	}

	providerCallsTotal.WithLabelValues(name, outcomeSuccess).Inc()
	logger.Debug().Dur("duration", time.Since(start)).Msg("Provider succeeded")
	return f, nil
}

// invoke runs Invoke under the executor, inside the provider's breaker.
func (r *Resolver) invoke(ctx context.Context, p provider.Provider, term string) ([]byte, error) {
	run := func() ([]byte, error) {
		return retry.Do(ctx, r.executor, func(ctx context.Context) ([]byte, error) {
			return p.Invoke(ctx, term)
		})
	}

	cb := r.breakers.get(p.Name())
	if cb == nil {
		return run()
	}

	v, err := cb.Execute(func() (interface{}, error) {
		return run()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apierr.Provider(p.Name(), 0, "circuit breaker open", err)
		}
		return nil, err
	}
	return v.([]byte), nil
}

// firstSuccess walks the category's chain and returns the first usable fragment.
func (r *Resolver) firstSuccess(ctx context.Context, c provider.Category, term string) (provider.Fragment, string, error) {
	var errs []error
	for _, d := range r.registry.Ordered(c) {
		f, err := r.call(ctx, d.Provider, term)
		if err == nil {
			return f, d.Name(), nil
		}
		if !errors.Is(err, errSkipped) {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return provider.Fragment{}, "", noResult(c, errs)
}

func noResult(c provider.Category, errs []error) error {
	code := apierr.CodeEnrichmentFailed
	switch c {
	case provider.Definition:
		code = apierr.CodeNoDefinition
	case provider.Audio:
		code = apierr.CodeNoAudio
	case provider.Translation:
		code = apierr.CodeTranslationFailed
	case provider.Image:
		code = apierr.CodeNoImage
	}
	return apierr.NoResult(code, string(c), errors.Join(errs...))
}
