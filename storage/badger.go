package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/ruteri/wallet-background/interfaces"
)

// BadgerBackend stores values in an embedded BadgerDB.
type BadgerBackend struct {
	db          *badger.DB
	log         *slog.Logger
	locationURI string
}

// NewBadgerBackend opens (or creates) a database at dir. An empty dir opens
// an in-memory database.
func NewBadgerBackend(dir string, log *slog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	uri := fmt.Sprintf("badger://%s", dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
		uri = "badger://memory"
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerBackend{
		db:          db,
		log:         log,
		locationURI: uri,
	}, nil
}

// Get reads key in a read-only transaction.
func (b *BadgerBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from badger: %w", err)
	}

	return value, nil
}

// Set writes key in its own transaction.
func (b *BadgerBackend) Set(ctx context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		b.log.Error("Failed to write to badger", slog.String("key", key), "err", err)
		return fmt.Errorf("failed to write to badger: %w", err)
	}
	return nil
}

// Delete removes key.
func (b *BadgerBackend) Delete(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete from badger: %w", err)
	}
	return nil
}

// Available reports whether the database is open.
func (b *BadgerBackend) Available(ctx context.Context) bool {
	return !b.db.IsClosed()
}

// Name returns a unique identifier for this storage backend.
func (b *BadgerBackend) Name() string {
	return "badger"
}

// LocationURI returns the URI that identifies this storage backend.
func (b *BadgerBackend) LocationURI() string {
	return b.locationURI
}

// Close flushes and closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
