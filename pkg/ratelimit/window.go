// Package ratelimit implements per-provider sliding-window request throttling.
// Each key keeps the timestamps of its admitted calls within the trailing
// window; a call is admitted only while the window holds fewer than the
// key's maximum.
package ratelimit

import (
	"time"
)

// Defaults for provider rate limits.
const (
	// DefaultWindow is the trailing interval over which calls are counted.
	DefaultWindow = 60 * time.Second

	// DefaultMaxRequests is the number of calls admitted per window.
	DefaultMaxRequests = 30
)

// Policy is the admission limit for one key.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// Config holds the default policy and per-key overrides.
type Config struct {
	Default   Policy
	Overrides map[string]Policy
}

// DefaultConfig returns 30 requests per 60 seconds for every key.
func DefaultConfig() Config {
	return Config{
		Default: Policy{
			MaxRequests: DefaultMaxRequests,
			Window:      DefaultWindow,
		},
	}
}

// PolicyFor returns the override for key, or the default policy.
func (c Config) PolicyFor(key string) Policy {
	if p, ok := c.Overrides[key]; ok {
		return p
	}
	return c.Default
}

// window holds the admitted-call timestamps of one key, oldest first.
type window struct {
	timestamps []time.Time
}

// prune drops timestamps that are no longer strictly inside the window.
func (w *window) prune(now time.Time, size time.Duration) {
	keep := 0
	for keep < len(w.timestamps) && now.Sub(w.timestamps[keep]) >= size {
		keep++
	}
	if keep > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[keep:]...)
	}
}

// admit prunes, then either records now or returns the wait until the
// oldest timestamp leaves the window.
func (w *window) admit(now time.Time, p Policy) (time.Duration, bool) {
	w.prune(now, p.Window)

	if p.MaxRequests <= 0 {
		return p.Window, false
	}
	if len(w.timestamps) >= p.MaxRequests {
		oldest := w.timestamps[0]
		return p.Window - now.Sub(oldest), false
	}

	w.timestamps = append(w.timestamps, now)
	return 0, true
}
