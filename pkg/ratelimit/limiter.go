package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
)

// Admitter gates provider calls. Admit never sleeps: it returns nil or an
// apierr rate limit error carrying RetryAfter.
type Admitter interface {
	Admit(ctx context.Context, key string) error
}

// Limiter is the in-process sliding-window limiter.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	now     func() time.Time
	logger  zerolog.Logger
}

// NewLimiter creates a limiter with the given policies.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock replaces the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Admit implements Admitter.
func (l *Limiter) Admit(_ context.Context, key string) error {
	policy := l.cfg.PolicyFor(key)

	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	retryAfter, admitted := w.admit(l.now(), policy)
	l.mu.Unlock()

	if !admitted {
		return l.reject(key, retryAfter)
	}

	rateLimitAdmitted.WithLabelValues(key).Inc()
	return nil
}

func (l *Limiter) reject(key string, retryAfter time.Duration) error {
	rateLimitRejected.WithLabelValues(key).Inc()
	l.logger.Warn().
		Str("key", key).
		Dur("retry_after", retryAfter).
		Msg("Rate limit exceeded")
	return apierr.RateLimited(key, retryAfter)
}

// Reset clears the window of one key.
func (l *Limiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// ResetAll clears every window.
func (l *Limiter) ResetAll(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
	return nil
}
