package cryptoutils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	passwordSaltSize = 32
	secretboxKeySize = 32
	secretboxNonce   = 24

	// scrypt cost parameters
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrWrongPassword is returned when a sealed payload does not open with the given password.
var ErrWrongPassword = errors.New("invalid password")

// EncryptWithPassword seals data with a key derived from password using scrypt.
// A fresh salt and nonce are generated for each encryption operation.
//
// Format: [salt (32 bytes)][nonce (24 bytes)][secretbox ciphertext]
func EncryptWithPassword(password string, data []byte) ([]byte, error) {
	if password == "" {
		return nil, errors.New("empty password")
	}

	salt := make([]byte, passwordSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [secretboxNonce]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := derivePasswordKey(password, salt)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 0, passwordSaltSize+secretboxNonce+len(data)+secretbox.Overhead)
	result = append(result, salt...)
	result = append(result, nonce[:]...)
	return secretbox.Seal(result, data, &nonce, key), nil
}

// DecryptWithPassword opens a payload produced by EncryptWithPassword.
func DecryptWithPassword(password string, sealed []byte) ([]byte, error) {
	if len(sealed) < passwordSaltSize+secretboxNonce+secretbox.Overhead {
		return nil, errors.New("sealed data too short")
	}

	salt := sealed[:passwordSaltSize]
	var nonce [secretboxNonce]byte
	copy(nonce[:], sealed[passwordSaltSize:passwordSaltSize+secretboxNonce])

	key, err := derivePasswordKey(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, ok := secretbox.Open(nil, sealed[passwordSaltSize+secretboxNonce:], &nonce, key)
	if !ok {
		return nil, ErrWrongPassword
	}

	return plaintext, nil
}

func derivePasswordKey(password string, salt []byte) (*[secretboxKeySize]byte, error) {
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, secretboxKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	var key [secretboxKeySize]byte
	copy(key[:], derived)
	return &key, nil
}
