package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in a process-local map.
// It does not survive restarts and is meant for tests and one-shot CLI runs.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Entry)}
}

// Load implements Backend.
func (b *MemoryBackend) Load(_ context.Context, key string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// Save implements Backend.
func (b *MemoryBackend) Save(_ context.Context, entry *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[entry.Key] = *entry
	return nil
}

// PurgeExpired implements Backend.
func (b *MemoryBackend) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, entry := range b.entries {
		if entry.IsExpired(now) {
			delete(b.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	return nil
}
