package interfaces

import (
	"context"

	"github.com/ruteri/wallet-background/router"
)

// KeyRingStatus is the lifecycle state of the key ring.
type KeyRingStatus string

const (
	// KeyRingUninitialized means no key was ever created.
	KeyRingUninitialized KeyRingStatus = "none"
	// KeyRingLocked means a vault exists but its key is not in memory.
	KeyRingLocked KeyRingStatus = "locked"
	// KeyRingActive means the key is unlocked and usable.
	KeyRingActive KeyRingStatus = "unlocked"
)

// Key is the public half of the account key for one chain.
type Key struct {
	Algo          string `json:"algo"`
	PubKey        []byte `json:"pubKey"`
	Address       []byte `json:"address"`
	Bech32Address string `json:"bech32Address"`
}

// KeyManager holds the account key and produces signatures after user approval.
type KeyManager interface {
	Status() KeyRingStatus

	// GetKey returns the account key for a chain. It fails with
	// ErrKeyRingNotInitialized or ErrKeyRingLocked.
	GetKey(ctx context.Context, chainID string) (Key, error)

	// Sign blocks until the user approves or rejects. Rejection or
	// cancellation yields ErrSigningRejected, expiry ErrSigningTimedOut.
	Sign(ctx context.Context, env router.Env, chainID string, message []byte) ([]byte, error)
}
