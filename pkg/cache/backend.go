package cache

//go:generate mockgen -source=backend.go -destination=../../internal/mocks/cache/mock_backend.go -package=mock_cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the backend
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Backend is durable key-value storage for cache entries.
// Implementations must be safe for concurrent use and must write each
// entry atomically.
type Backend interface {
	// Load returns the stored entry or ErrCacheMiss. Expiry is not checked.
	Load(ctx context.Context, key string) (*Entry, error)

	// Save overwrites the entry stored under entry.Key.
	Save(ctx context.Context, entry *Entry) error

	// PurgeExpired removes entries with ExpiresAt <= now and returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	// Close releases the backend's resources.
	Close() error
}
