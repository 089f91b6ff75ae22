// Command walletd runs the wallet background as an HTTP daemon.
//
// It opens the configured storage, loads the embedded and suggested chains,
// the key ring vault and the stored permissions, and serves the message router
// at /api/dispatch. Signing requests and chain suggestions wait for a decision
// made through the interaction route, unless --auto-approve is set.
//
// Example:
//
//	walletd --storage badger://./wallet-data --internal-token $TOKEN
package main
