package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for provider calls.
var (
	providerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_provider_calls_total",
		Help: "Total provider invocations by provider and outcome",
	}, []string{"provider", "outcome"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vocab_provider_duration_seconds",
		Help:    "Provider invocation duration in seconds, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vocab_provider_breaker_state",
		Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
	}, []string{"provider"})
)

// Call outcomes.
const (
	outcomeSuccess     = "success"
	outcomeSkipped     = "skipped"
	outcomeRateLimited = "rate_limited"
	outcomeBreakerOpen = "breaker_open"
	outcomeError       = "error"
	outcomeInvalid     = "invalid"
)
