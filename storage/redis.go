package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/wallet-background/interfaces"
)

// RedisBackend stores values as plain redis strings under an optional key prefix.
type RedisBackend struct {
	client      *redis.Client
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend connects lazily to the redis server described by redisURL
// (redis://[:password@]host:port/db).
func NewRedisBackend(redisURL, prefix string, log *slog.Logger) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	return &RedisBackend{
		client:      redis.NewClient(opts),
		prefix:      prefix,
		log:         log,
		locationURI: fmt.Sprintf("redis://%s/%d", opts.Addr, opts.DB),
	}, nil
}

// Get fetches the value of key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		b.log.Error("Failed to read from redis", slog.String("key", key), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return value, nil
}

// Set stores value without expiration.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		b.log.Error("Failed to write to redis", slog.String("key", key), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// Delete removes key.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// Available pings the server.
func (b *RedisBackend) Available(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := b.client.Ping(pingCtx).Err(); err != nil {
		b.log.Debug("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *RedisBackend) Name() string {
	return "redis"
}

// LocationURI returns the URI that identifies this storage backend.
func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

// Close releases the connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
