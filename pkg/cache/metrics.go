package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by key category
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_cache_hits_total",
			Help: "Total number of enrichment cache hits",
		},
		[]string{"category"}, // "def", "audio", "trans", "img", "enriched"
	)

	// CacheMisses tracks cache misses by key category
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_cache_misses_total",
			Help: "Total number of enrichment cache misses",
		},
		[]string{"category"},
	)

	// CacheErrors tracks backend failures absorbed by the store
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"}, // "get", "put", "purge"
	)

	// CachePurged tracks entries removed by PurgeExpired
	CachePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vocab_cache_purged_total",
			Help: "Total number of expired cache entries physically removed",
		},
	)
)
