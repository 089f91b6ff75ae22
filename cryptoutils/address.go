package cryptoutils

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// CosmosAddressLength is the byte length of an account address.
const CosmosAddressLength = 20

// CosmosAddress derives the account address of a compressed secp256k1 public
// key as RIPEMD160(SHA256(pubkey)).
func CosmosAddress(compressedPubKey []byte) ([]byte, error) {
	if len(compressedPubKey) != 33 {
		return nil, fmt.Errorf("invalid compressed public key length %d", len(compressedPubKey))
	}

	sha := sha256.Sum256(compressedPubKey)
	hasher := ripemd160.New()
	hasher.Write(sha[:])
	return hasher.Sum(nil), nil
}

// Bech32Encode encodes raw address bytes with the given human readable prefix.
func Bech32Encode(hrp string, address []byte) (string, error) {
	if hrp == "" {
		return "", errors.New("empty bech32 prefix")
	}

	converted, err := bech32.ConvertBits(address, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}

	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode bech32 address: %w", err)
	}

	return encoded, nil
}

// Bech32Decode decodes an address and checks that it carries the expected prefix.
func Bech32Decode(expectedHRP string, address string) ([]byte, error) {
	hrp, data, err := bech32.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bech32 address: %w", err)
	}

	if hrp != expectedHRP {
		return nil, fmt.Errorf("unexpected bech32 prefix %q, expected %q", hrp, expectedHRP)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert address bits: %w", err)
	}

	return raw, nil
}
