package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/ruteri/wallet-background/interfaces"
)

// StorageBackendFactory creates stores from URI strings and manages
// multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// StoreFor creates a store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory:// - Process memory, lost on restart
//   - file:// - Local filesystem storage
//   - badger:// - Embedded BadgerDB (badger://memory for an in-memory database)
//   - vault:// - HashiCorp Vault KV v2
//   - redis:// - Redis server
//   - s3:// - Amazon S3 or compatible object storage
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StorageBackendFactory) StoreFor(location interfaces.StorageBackendLocation) (interfaces.KVStore, error) {
	u, err := url.Parse(location.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return NewMemoryBackend(sf.log), nil
	case "file":
		return sf.createFileBackend(u)
	case "badger":
		return sf.createBadgerBackend(u)
	case "vault":
		return sf.createVaultBackend(u)
	case "redis":
		return sf.createRedisBackend(u)
	case "s3":
		return sf.createS3Backend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiStore creates a multi-backend store from a list of location URIs.
// It writes to all available backends and reads from the first one that has the key.
// Returns an error if no valid backends could be created from the provided URIs.
func (sf *StorageBackendFactory) CreateMultiStore(locations []interfaces.StorageBackendLocation) (interfaces.KVStore, error) {
	backends := make([]interfaces.KVStore, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StoreFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiStore(backends, sf.log), nil
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	dir := u.Path
	if u.Host != "" {
		dir = u.Host + "/" + strings.TrimPrefix(dir, "/")
	}

	if dir == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileBackend(dir, sf.log)
}

// createBadgerBackend opens an embedded database.
// URI format: badger:///absolute/path or badger://memory
func (sf *StorageBackendFactory) createBadgerBackend(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating badger backend", slog.String("uri", u.String()))

	if u.Host == "memory" {
		return NewBadgerBackend("", sf.log)
	}

	dir := u.Path
	if u.Host != "" {
		dir = u.Host + "/" + strings.TrimPrefix(dir, "/")
	}

	if dir == "" {
		return nil, fmt.Errorf("empty path in badger URI: %s", u.String())
	}

	return NewBadgerBackend(dir, sf.log)
}

// createVaultBackend creates a Vault KV v2 backend.
// URI format: vault://[token@]host:port/mount/path?tls=false
func (sf *StorageBackendFactory) createVaultBackend(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", u.Host))

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: missing mount path in vault URI", interfaces.ErrInvalidLocationURI)
	}

	mountPath := parts[0]
	dataPath := ""
	if len(parts) > 1 {
		dataPath = parts[1]
	}

	scheme := "https"
	if u.Query().Get("tls") == "false" {
		scheme = "http"
	}

	var token string
	if u.User != nil {
		token = u.User.Username()
	}

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, u.Host), mountPath, dataPath, token, sf.log)
}

// createRedisBackend creates a redis backend.
// URI format: redis://[:password@]host:port/db?prefix=wallet:
func (sf *StorageBackendFactory) createRedisBackend(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating redis backend", slog.String("host", u.Host))

	query := u.Query()
	prefix := query.Get("prefix")
	query.Del("prefix")

	stripped := *u
	stripped.RawQuery = query.Encode()

	return NewRedisBackend(stripped.String(), prefix, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *StorageBackendFactory) createS3Backend(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", u.Host))

	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket in s3 URI", interfaces.ErrInvalidLocationURI)
	}

	prefix := path.Clean("/" + u.Path)[1:]

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Backend(bucketName, prefix, region, query.Get("endpoint"), accessKey, secretKey, sf.log)
}
