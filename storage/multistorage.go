package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/wallet-background/interfaces"
)

// MultiStore implements interfaces.KVStore using multiple backends with fallback.
type MultiStore struct {
	backends []interfaces.KVStore
	log      *slog.Logger
}

// NewMultiStore creates a new multi-backend store with fallback.
func NewMultiStore(backends []interfaces.KVStore, logger *slog.Logger) *MultiStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		backends: backends,
		log:      logger,
	}
}

// Get reads from the first available backend that has the key. When every
// reachable backend reports the key missing the result is ErrNotFound.
func (m *MultiStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var errs []error
	missing := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key))
			continue
		}

		data, err := backend.Get(ctx, key)
		if err == nil {
			m.log.Debug("Fetched value",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrNotFound) {
			missing++
			continue
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("key", key),
			"err", err)
	}

	if len(errs) == 0 && missing > 0 {
		return nil, interfaces.ErrNotFound
	}

	m.log.Error("All backends failed to fetch value",
		slog.String("key", key),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("%w: all backends failed to fetch %s: %v", interfaces.ErrBackendUnavailable, key, errs)
}

// Set writes to all available backends and succeeds if at least one write succeeded.
func (m *MultiStore) Set(ctx context.Context, key string, value []byte) error {
	return m.forEachAvailable(ctx, "store", key, func(backend interfaces.KVStore) error {
		return backend.Set(ctx, key, value)
	})
}

// Delete removes the key from all available backends.
func (m *MultiStore) Delete(ctx context.Context, key string) error {
	return m.forEachAvailable(ctx, "delete", key, func(backend interfaces.KVStore) error {
		return backend.Delete(ctx, key)
	})
}

func (m *MultiStore) forEachAvailable(ctx context.Context, op, key string, fn func(interfaces.KVStore) error) error {
	start := time.Now()
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := fn(backend); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Backend operation failed",
				slog.String("op", op),
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		m.log.Error("All backends failed",
			slog.String("op", op),
			slog.String("key", key),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: all backends failed to %s %s: %v", interfaces.ErrBackendUnavailable, op, key, errs)
	}

	return nil
}

// Available checks if any backend is available
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStore) Name() string {
	return "multi-storage"
}

// LocationURI returns the combined location URIs of all backends.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}

// Close closes every backend holding resources.
func (m *MultiStore) Close() error {
	var errs []error
	for _, backend := range m.backends {
		if closer, ok := backend.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
