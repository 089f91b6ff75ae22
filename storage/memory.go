package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ruteri/wallet-background/interfaces"
)

// MemoryBackend keeps values in process memory. Intended for tests and
// ephemeral development instances.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
	log  *slog.Logger
}

// NewMemoryBackend creates an empty in-memory store.
func NewMemoryBackend(log *slog.Logger) *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string][]byte),
		log:  log,
	}
}

// Get returns a copy of the stored value or ErrNotFound.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.data[key]
	if !ok {
		return nil, interfaces.ErrNotFound
	}

	return append([]byte(nil), value...), nil
}

// Set stores a copy of value under key.
func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.data, key)
	return nil
}

// Available always returns true.
func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this storage backend.
func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
