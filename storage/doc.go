// Package storage provides a key-value storage system with pluggable backends.
//
// The storage package offers a unified interfaces.KVStore implementation for
// the wallet's persisted state across multiple storage backends:
//
//   - Memory storage for tests and ephemeral instances
//   - File system storage for local development
//   - BadgerDB for an embedded, crash-safe local database
//   - Vault storage using the KV v2 secret engine
//   - Redis for shared deployments
//   - S3-compatible storage for cloud backups
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - memory://
//   - file:///var/lib/wallet/
//   - badger:///var/lib/wallet/db or badger://memory
//   - vault://token@vault.example.com:8200/secret/wallet
//   - redis://:password@redis.example.com:6379/0?prefix=wallet:
//   - s3://bucket-name/prefix/?region=us-west-2
//
// # Namespaces
//
// Services share one store through PrefixStore views, so the persisted layout
// stays flat while each service owns its own key space:
//
//	keyring/     encrypted vault
//	chains/      suggested chain descriptors
//	permission/  granted permissions
//	secret-wasm/ seed-<chainId>-<bech32 address> → lowercase hex seed
//
// # Vault Storage
//
// The VaultBackend stores values in HashiCorp Vault:
//
//   - Authentication: token from the URI user part or VAULT_TOKEN
//   - Path Structure: {mount}/data/{path}/{base64url(key)}
//   - Values: base64-encoded into the "content" field
//
// # Multi-Backend Example
//
//	locations := []interfaces.StorageBackendLocation{file, vault}
//	store, err := factory.CreateMultiStore(locations)
//	if err != nil {
//	    log.Fatalf("Failed to create store: %v", err)
//	}
//	secretWasmStore := storage.NewPrefixStore(store, "secret-wasm/")
package storage
