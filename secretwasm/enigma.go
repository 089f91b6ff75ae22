package secretwasm

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/miscreant/miscreant.go"
	"github.com/ruteri/wallet-background/interfaces"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	// SeedSize is the length of a confidential-computation seed.
	SeedSize = 32
	// NonceSize is the length of the per-message nonce.
	NonceSize = 32

	txKeySize = 32
)

// hkdfSalt is the fixed salt of the network's transaction key derivation.
var hkdfSalt, _ = hex.DecodeString("000000000000000000024bead8df69990852c202db0e0097c1a12ea637d7e96d")

// EnigmaUtils encrypts contract messages for one chain with one seed.
type EnigmaUtils struct {
	restURL   string
	privKey   []byte
	pubKey    []byte
	consensus ConsensusKeySource

	mu           sync.Mutex
	consensusKey []byte
}

// NewEnigmaUtils derives the X25519 key pair from seed. The consensus IO key
// is fetched from restURL on first use.
func NewEnigmaUtils(restURL string, seed []byte, consensus ConsensusKeySource) (*EnigmaUtils, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed length %d", len(seed))
	}

	privKey := make([]byte, SeedSize)
	copy(privKey, seed)

	pubKey, err := curve25519.X25519(privKey, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	return &EnigmaUtils{
		restURL:   restURL,
		privKey:   privKey,
		pubKey:    pubKey,
		consensus: consensus,
	}, nil
}

// PubKey returns the X25519 public key sent along with every encrypted message.
func (e *EnigmaUtils) PubKey() []byte {
	res := make([]byte, len(e.pubKey))
	copy(res, e.pubKey)
	return res
}

func (e *EnigmaUtils) consensusIOPubKey(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.consensusKey != nil {
		return e.consensusKey, nil
	}

	key, err := e.consensus.ConsensusIOPubKey(ctx, e.restURL)
	if err != nil {
		return nil, err
	}

	e.consensusKey = key
	return key, nil
}

// TxEncryptionKey derives the AES-SIV key for nonce.
func (e *EnigmaUtils) TxEncryptionKey(ctx context.Context, nonce []byte) ([]byte, error) {
	consensusKey, err := e.consensusIOPubKey(ctx)
	if err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(e.privKey, consensusKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	ikm := make([]byte, 0, len(shared)+len(nonce))
	ikm = append(ikm, shared...)
	ikm = append(ikm, nonce...)

	key := make([]byte, txKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, hkdfSalt, nil), key); err != nil {
		return nil, fmt.Errorf("failed to derive transaction key: %w", err)
	}
	return key, nil
}

// Encrypt seals codeHash followed by msg. The output is nonce || pubkey || ciphertext.
func (e *EnigmaUtils) Encrypt(ctx context.Context, codeHash string, msg []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := e.TxEncryptionKey(ctx, nonce)
	if err != nil {
		return nil, err
	}

	siv, err := miscreant.NewAESCMACSIV(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, 0, len(codeHash)+len(msg))
	plaintext = append(plaintext, codeHash...)
	plaintext = append(plaintext, msg...)

	ciphertext, err := siv.Seal(nil, plaintext, []byte{})
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}

	res := make([]byte, 0, NonceSize+len(e.pubKey)+len(ciphertext))
	res = append(res, nonce...)
	res = append(res, e.pubKey...)
	return append(res, ciphertext...), nil
}

// Decrypt opens a contract response encrypted under nonce. An empty
// ciphertext decrypts to an empty plaintext.
func (e *EnigmaUtils) Decrypt(ctx context.Context, ciphertext, nonce []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return []byte{}, nil
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: invalid nonce length %d", interfaces.ErrDecryptionFailed, len(nonce))
	}

	key, err := e.TxEncryptionKey(ctx, nonce)
	if err != nil {
		return nil, err
	}

	siv, err := miscreant.NewAESCMACSIV(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := siv.Open(nil, ciphertext, []byte{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
