// Package metrics exposes the Prometheus registry shared by the enrichment
// packages. Metrics are defined next to the code that records them (cache,
// ratelimit, retry, resolver, enrichment, batch, scheduler) and registered via
// promauto; this package documents them and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the module.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - vocab_cache_hits_total{category} (Counter): Lookups served from cache (def, audio, trans, img, enriched)
//   - vocab_cache_misses_total{category} (Counter): Lookups that found nothing live
//   - vocab_cache_errors_total{operation} (Counter): Absorbed backend failures (get, put, purge)
//   - vocab_cache_purged_total (Counter): Expired entries physically removed
//
// Rate Limit Metrics (pkg/ratelimit):
//   - vocab_rate_limit_admitted_total{key} (Counter): Calls admitted per provider key
//   - vocab_rate_limit_rejected_total{key} (Counter): Calls rejected with a retry-after hint
//
// Retry Metrics (pkg/retry):
//   - vocab_retries_total{error_class} (Counter): Retry attempts by error class
//   - vocab_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - vocab_retry_exhausted_total{error_class} (Counter): Operations that used every attempt
//
// Provider Metrics (pkg/resolver):
//   - vocab_provider_calls_total{provider, outcome} (Counter): Outcomes are success, skipped,
//     rate_limited, breaker_open, error, invalid
//   - vocab_provider_duration_seconds{provider} (Histogram): Invocation time, retries included
//   - vocab_provider_breaker_state{provider} (Gauge): 0 closed, 1 half-open, 2 open
//
// Enrichment Metrics (pkg/enrichment, pkg/batch):
//   - vocab_enrichments_total{result} (Counter): cached, complete, partial, failed
//   - vocab_enrichment_category_failures_total{category} (Counter): Recorded category errors
//   - vocab_batch_items_total{outcome} (Counter): Batch items by success/failure
//   - vocab_batch_duration_seconds (Histogram): Whole batch duration
//
// Maintenance Metrics (internal/scheduler):
//   - vocab_purge_runs_total{result} (Counter): Scheduled purge runs by success/error
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(vocab_cache_hits_total[5m])) /
//   (sum(rate(vocab_cache_hits_total[5m])) + sum(rate(vocab_cache_misses_total[5m])))
//
//   # Provider failure ratio
//   sum by (provider) (rate(vocab_provider_calls_total{outcome!="success",outcome!="skipped"}[5m])) /
//   sum by (provider) (rate(vocab_provider_calls_total[5m]))
//
//   # Open breakers
//   vocab_provider_breaker_state == 2
//
//   # P95 Provider Latency
//   histogram_quantile(0.95, sum by (le, provider) (rate(vocab_provider_duration_seconds_bucket[5m])))
