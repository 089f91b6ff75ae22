package interfaces

// Event bus topics. Subscribers run synchronously inside Publish.
const (
	// TopicChainRemoved carries the removed chain id (string).
	TopicChainRemoved = "chains:removed"

	// TopicKeyRingCleared carries no arguments.
	TopicKeyRingCleared = "keyring:cleared"
)

// KeyRingClearedNotifier is implemented by key managers that can report a wipe of the key ring.
type KeyRingClearedNotifier interface {
	OnKeyRingCleared(fn func()) error
}
