// Package interfaces defines the contracts and shared types of the wallet
// background, separating interface definitions from implementations.
//
// # Chain Types
//
// ChainInfo: Static descriptor of a chain (endpoints, bech32 prefixes,
// currencies, BIP44 coin type). Descriptors are validated with struct tags
// before a suggested chain is accepted.
//
// ChainIdentifier: A chain id split into identifier and revision, so that
// "cosmoshub-3" and "cosmoshub-4" resolve to the same registered chain.
//
// # Collaborator Interfaces
//
// ChainRegistry: Resolves chain ids and notifies listeners of chain removal.
//
// KeyManager: Holds the account key, derives per-chain keys and produces
// signatures after the user approved the request.
//
// KVStore: Flat key-value namespace used for persisted seeds, grants,
// suggested chains and the encrypted key ring vault.
//
// StorageBackendFactory: Creates KV stores from URI strings and aggregates
// them for redundant storage.
//
// # Errors
//
// The sentinel errors in this package are shared across services and are
// mapped to stable codes by the HTTP bridge.
package interfaces
