package interfaces

import "errors"

var (
	// ErrUnknownChain is returned when a chain id does not resolve in the registry.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrInvalidChainDescriptor is returned when a suggested chain fails validation.
	ErrInvalidChainDescriptor = errors.New("invalid chain info")

	// ErrKeyRingNotInitialized is returned when no key has been created yet.
	ErrKeyRingNotInitialized = errors.New("Key ring is not initialized")

	// ErrKeyRingLocked is returned when key material is needed but the ring is locked.
	ErrKeyRingLocked = errors.New("Key ring is locked")

	// ErrSigningRejected is returned when the user rejected a signature or the
	// requesting context was canceled while waiting for approval.
	ErrSigningRejected = errors.New("Request rejected")

	// ErrSigningTimedOut is returned when a signature approval was not answered in time.
	ErrSigningTimedOut = errors.New("Request timed out")

	// ErrDecryptionFailed is returned when a confidential ciphertext fails to authenticate.
	ErrDecryptionFailed = errors.New("Failed to decrypt")

	// ErrNotFound is returned when a key is absent from the store.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
