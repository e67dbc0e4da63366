// Package retry wraps operations with bounded, capped exponential backoff and
// a per-attempt timeout.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vocab_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 4, 8, 16},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first call).
	MaxAttempts int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps every wait.
	MaxDelay time.Duration

	// AttemptTimeout bounds each individual attempt. Zero disables the bound.
	AttemptTimeout time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    4,
		BaseDelay:      2 * time.Second,
		MaxDelay:       16 * time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

// Backoff returns the wait before zero-indexed retry n: min(BaseDelay*2^n, MaxDelay).
func (c Config) Backoff(n int) time.Duration {
	delay := c.BaseDelay
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs operations under a retry policy.
type Executor struct {
	cfg    Config
	sleep  SleepFunc
	logger zerolog.Logger
}

// New creates an executor. A MaxAttempts below 1 is treated as 1.
func New(cfg Config, logger zerolog.Logger) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Executor{
		cfg:    cfg,
		sleep:  sleepContext,
		logger: logger,
	}
}

// SetSleep replaces the wait function, e.g. to record delays in tests.
func (e *Executor) SetSleep(fn SleepFunc) {
	e.sleep = fn
}

// Config returns the executor's policy.
func (e *Executor) Config() Config {
	return e.cfg
}

// Execute calls op until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error is returned unchanged.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := run(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is Execute for operations that produce a value. Only the value of the
// successful attempt is returned; a timed-out attempt's late result is dropped.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, e, op)
}

func run[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			class := errorClass(lastErr)
			delay := e.delayFor(attempt-1, lastErr)

			retriesTotal.WithLabelValues(class).Inc()
			retryBackoffSeconds.WithLabelValues(class).Observe(delay.Seconds())

			e.logger.Warn().
				Err(lastErr).
				Str("error_class", class).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying after backoff")

			if err := e.sleep(ctx, delay); err != nil {
				e.logger.Warn().
					Str("error_class", class).
					Int("attempt", attempt).
					Msg("Context cancelled during retry backoff")
				return zero, fmt.Errorf("retry aborted: %w: %w", err, lastErr)
			}
		}

		v, err := attemptOnce(ctx, e.cfg.AttemptTimeout, op)
		if err == nil {
			if attempt > 0 {
				e.logger.Debug().
					Int("attempt", attempt+1).
					Msg("Operation succeeded after retry")
			}
			return v, nil
		}
		lastErr = err

		if !apierr.IsRetryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}
	}

	class := errorClass(lastErr)
	retryExhaustedTotal.WithLabelValues(class).Inc()
	e.logger.Warn().
		Err(lastErr).
		Str("error_class", class).
		Int("max_attempts", e.cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return zero, lastErr
}

// delayFor honours a rate limit hint longer than the computed backoff, within MaxDelay.
func (e *Executor) delayFor(n int, lastErr error) time.Duration {
	delay := e.cfg.Backoff(n)
	if hint, ok := apierr.RetryAfterOf(lastErr); ok && hint > delay {
		delay = min(hint, e.cfg.MaxDelay)
	}
	return delay
}

type outcome[T any] struct {
	v   T
	err error
}

// attemptOnce runs op once under timeout. A panic in op becomes an error.
// The value travels with its error on the attempt's own channel, so an
// abandoned attempt never touches the caller's state.
func attemptOnce[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return safeCall(ctx, op)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := safeCall(attemptCtx, op)
		done <- outcome[T]{v: v, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		if out.err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return zero, apierr.Timeout("", timeout, out.err)
		}
		return out.v, out.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, apierr.Timeout("", timeout, attemptCtx.Err())
	}
}

func safeCall[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

func errorClass(err error) string {
	if class := apierr.ClassOf(err); class != "" {
		return string(class)
	}
	return "unknown"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
