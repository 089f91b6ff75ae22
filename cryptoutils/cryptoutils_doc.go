// Package cryptoutils provides the cryptographic helpers shared by the key ring
// and the chain services.
//
// # Addresses
//
// Account addresses are RIPEMD160(SHA256(compressed secp256k1 pubkey)) and are
// rendered with the chain's bech32 account prefix:
//
//   - CosmosAddress - derives the 20-byte address of a public key
//   - Bech32Encode / Bech32Decode - convert between raw bytes and bech32 strings
//
// # Password Encryption
//
// The key ring vault is sealed with a password-derived key:
//
//   - scrypt (N=2^15, r=8, p=1) derives a 32-byte key from the password and a random salt
//   - NaCl secretbox (XSalsa20-Poly1305) provides authenticated encryption
//
// The sealed data follows this binary format:
//
//	[salt (32 bytes)][nonce (24 bytes)][ciphertext]
//
// A payload that fails to authenticate yields ErrWrongPassword.
package cryptoutils
