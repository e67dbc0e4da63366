// Package cache provides the time-bounded result cache of the enrichment pipeline.
//
// Entries are keyed by category and normalized term ("def_run", "audio_run",
// "enriched_run") and expire after a caller-supplied TTL:
//
// - Lazy expiry: expired entries read as absent but stay stored
// - PurgeExpired physically removes them (scheduled daily by the service)
// - Last write wins, each write is atomic per key
// - Backend failures degrade to cache misses and never abort enrichment
// - Prometheus metrics for observability
//
// # Backends
//
// Three Backend implementations ship with the package:
//
//   - MemoryBackend: process-local map, for tests and one-shot CLI runs
//   - RedisBackend: JSON values under "vocab:cache:<key>" plus a sorted-set
//     expiry index "vocab:cache:expiry"
//   - SQLBackend: a vocab_cache table on sqlite3 or mysql
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	store := cache.NewStore(cache.NewRedisBackend(redisClient), logger)
//
//	key := cache.Key{Category: cache.CategoryDefinition, Term: "Run "}.String() // "def_run"
//
//	var defs DefinitionResult
//	if !store.GetJSON(ctx, key, &defs) {
//		// Cache miss - resolve from providers
//		store.PutJSON(ctx, key, defs, "oxford", cache.DefaultTTL)
//	}
//
//	removed, err := store.PurgeExpired(ctx)
//
// # Metrics
//
//   - vocab_cache_hits_total{category} - Cache hits
//   - vocab_cache_misses_total{category} - Cache misses (absent or expired)
//   - vocab_cache_errors_total{operation} - Absorbed backend errors
//   - vocab_cache_purged_total - Entries removed by PurgeExpired
package cache
