package interfaces

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   *url.Userinfo
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "memory", "file", "badger", "vault", "redis", "s3":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := strings.ToLower(loc.Query.Get(name))
	return value == "true" || value == "1" || value == "yes"
}

// KVStore is a flat key-value namespace. Keys are opaque strings; values are
// stored byte-for-byte.
type KVStore interface {
	// Get returns ErrNotFound when the key has never been written or was deleted.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates stores from location URIs.
type StorageBackendFactory interface {
	// StoreFor creates a store from a URI.
	// Supports memory://, file://, badger://, vault://, redis://, s3://
	StoreFor(location StorageBackendLocation) (KVStore, error)

	// CreateMultiStore creates an aggregated store writing to every backend.
	CreateMultiStore(locations []StorageBackendLocation) (KVStore, error)
}
