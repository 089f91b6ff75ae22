package storage

import (
	"context"

	"github.com/ruteri/wallet-background/interfaces"
)

// PrefixStore namespaces every key of an underlying store.
type PrefixStore struct {
	inner  interfaces.KVStore
	prefix string
}

// NewPrefixStore returns a view of inner where every key is prefixed with prefix.
func NewPrefixStore(inner interfaces.KVStore, prefix string) *PrefixStore {
	return &PrefixStore{inner: inner, prefix: prefix}
}

func (p *PrefixStore) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixStore) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *PrefixStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *PrefixStore) Available(ctx context.Context) bool {
	return p.inner.Available(ctx)
}

func (p *PrefixStore) Name() string {
	return p.inner.Name() + "/" + p.prefix
}

func (p *PrefixStore) LocationURI() string {
	return p.inner.LocationURI()
}
