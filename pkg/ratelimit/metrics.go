package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limiting.
var (
	rateLimitAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_rate_limit_admitted_total",
		Help: "Total number of provider calls admitted by the rate limiter",
	}, []string{"key"})

	rateLimitRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_rate_limit_rejected_total",
		Help: "Total number of provider calls rejected by the rate limiter",
	}, []string{"key"})
)
