package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached provider result.
type Entry struct {
	// Key is the normalized cache key (e.g. "def_run").
	Key string `json:"key"`

	// Payload is the JSON-encoded result, opaque to the store.
	Payload json.RawMessage `json:"payload"`

	// Provider is the name of the provider that produced Payload.
	Provider string `json:"provider"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the entry becomes logically absent.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the entry is expired at the given instant.
// An entry expiring exactly at now counts as expired.
func (e *Entry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
