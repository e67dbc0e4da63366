package resolver

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
)

// BreakerConfig controls the per-provider circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failed invocations that
	// opens the breaker. Zero disables breakers.
	FailureThreshold uint32

	// OpenTimeout is how long an open breaker rejects calls before letting a
	// probe through.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
	}
}

// breakers lazily creates one breaker per provider name.
type breakers struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	byName map[string]*gobreaker.CircuitBreaker
	logger zerolog.Logger
}

func newBreakers(cfg BreakerConfig, logger zerolog.Logger) *breakers {
	return &breakers{
		cfg:    cfg,
		byName: make(map[string]*gobreaker.CircuitBreaker),
		logger: logger,
	}
}

// get returns the breaker for name, or nil when breakers are disabled.
func (b *breakers) get(name string) *gobreaker.CircuitBreaker {
	if b.cfg.FailureThreshold == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byName[name]; ok {
		return cb
	}

	threshold := b.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Final answers such as "not found" say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || !apierr.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(float64(to))
			b.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
	b.byName[name] = cb
	return cb
}
