package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is the lifetime of enrichment results.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the time-bounded cache used by the enrichment pipeline.
//
// Backend failures never reach the caller: reads degrade to a miss and writes
// are logged and counted.
type Store struct {
	backend Backend
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStore creates a store on top of the given backend.
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	return &Store{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry decisions.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Lookup returns the live entry stored under key.
// Missing, expired, corrupt and unreadable entries are all reported as absent.
func (s *Store) Lookup(ctx context.Context, key string) (*Entry, bool) {
	category := categoryOf(key)

	entry, err := s.backend.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			CacheErrors.WithLabelValues("get").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		}
		CacheMisses.WithLabelValues(category).Inc()
		return nil, false
	}

	if entry.IsExpired(s.now()) {
		s.logger.Debug().Str("key", key).Time("expires_at", entry.ExpiresAt).Msg("Cache entry expired")
		CacheMisses.WithLabelValues(category).Inc()
		return nil, false
	}

	s.logger.Debug().
		Str("key", key).
		Str("provider", entry.Provider).
		Dur("ttl", entry.TTL(s.now())).
		Msg("Cache hit")
	CacheHits.WithLabelValues(category).Inc()
	return entry, true
}

// Get returns the payload stored under key, or false if absent or expired.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, ok := s.Lookup(ctx, key)
	if !ok {
		return nil, false
	}
	return entry.Payload, true
}

// GetJSON decodes the payload stored under key into v.
// A payload that does not decode is treated as a miss.
func (s *Store) GetJSON(ctx context.Context, key string, v any) bool {
	payload, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cached payload does not decode, treating as miss")
		return false
	}
	return true
}

// Put stores payload under key for ttl, replacing any previous entry.
// Failures are logged and swallowed.
func (s *Store) Put(ctx context.Context, key string, payload json.RawMessage, provider string, ttl time.Duration) {
	if err := s.put(ctx, key, payload, provider, ttl); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		s.logger.Warn().Err(err).Str("key", key).Str("provider", provider).Msg("Cache write failed")
	}
}

// PutJSON encodes v and stores it under key.
func (s *Store) PutJSON(ctx context.Context, key string, v any, provider string, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache payload does not encode")
		return
	}
	s.Put(ctx, key, payload, provider, ttl)
}

func (s *Store) put(ctx context.Context, key string, payload json.RawMessage, provider string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("cache key cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s", ttl)
	}

	now := s.now()
	entry := &Entry{
		Key:       key,
		Payload:   payload,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.backend.Save(ctx, entry); err != nil {
		return err
	}

	s.logger.Debug().Str("key", key).Str("provider", provider).Dur("ttl", ttl).Msg("Cache entry stored")
	return nil
}

// PurgeExpired physically removes every entry with ExpiresAt <= now.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	removed, err := s.backend.PurgeExpired(ctx, s.now())
	if err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return 0, fmt.Errorf("purge expired: %w", err)
	}

	CachePurged.Add(float64(removed))
	s.logger.Info().Int("removed", removed).Msg("Expired cache entries purged")
	return removed, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// categoryOf returns the key prefix used as metrics label.
func categoryOf(key string) string {
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
