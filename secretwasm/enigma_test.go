package secretwasm

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miscreant/miscreant.go"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// networkTxKey derives the transaction key the way the network does, from
// the consensus private key and the sender's public key.
func networkTxKey(t *testing.T, consensusPriv, senderPub, nonce []byte) []byte {
	shared, err := curve25519.X25519(consensusPriv, senderPub)
	require.NoError(t, err)

	key := make([]byte, 32)
	_, err = io.ReadFull(hkdf.New(sha256.New, append(shared, nonce...), hkdfSalt, nil), key)
	require.NoError(t, err)
	return key
}

type consensusServer struct {
	*httptest.Server
	current atomic.Int32
	legacy  atomic.Int32
}

func newConsensusServer(t *testing.T, pub []byte, legacyOnly bool) *consensusServer {
	s := &consensusServer{}
	encoded := base64.StdEncoding.EncodeToString(pub)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case txKeyPath:
			s.current.Inc()
			if legacyOnly {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"key": encoded})
		case legacyTxKeyPath:
			s.legacy.Inc()
			json.NewEncoder(w).Encode(map[string]any{"result": map[string]string{"TxKey": encoded}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func TestEncryptDecrypt(t *testing.T) {
	ctx := context.Background()
	consensus := newStaticConsensus(t)
	server := newConsensusServer(t, consensus.pub, false)

	f := newFixture(t, interaction.AutoApprover{}, nil)
	f.service.consensus = NewRESTConsensusKeySource(1, 5*time.Second, testLogger())
	f.suggest(t, "pulsar-3", server.URL)

	pubkey, err := f.service.GetPubkey(ctx, testEnv, "pulsar-3")
	require.NoError(t, err)

	ciphertext, err := f.service.Encrypt(ctx, testEnv, "pulsar-3", "af74387e276be8874f07bec3a87023ee49b0e7ebe08178c49d0a49c3c98ed60e",
		json.RawMessage(`{ "transfer": { "recipient": "<secret1abc>", "amount": "1" } }`))
	require.NoError(t, err)
	require.Greater(t, len(ciphertext), NonceSize+32)

	nonce := ciphertext[:NonceSize]
	assert.Equal(t, pubkey, ciphertext[NonceSize:NonceSize+32])

	siv, err := miscreant.NewAESCMACSIV(networkTxKey(t, consensus.priv, pubkey, nonce))
	require.NoError(t, err)

	plaintext, err := siv.Open(nil, ciphertext[NonceSize+32:], []byte{})
	require.NoError(t, err)
	assert.Equal(t,
		`af74387e276be8874f07bec3a87023ee49b0e7ebe08178c49d0a49c3c98ed60e{"transfer":{"recipient":"<secret1abc>","amount":"1"}}`,
		string(plaintext))

	response, err := siv.Seal(nil, []byte(`{"transfer":{"status":"success"}}`), []byte{})
	require.NoError(t, err)

	decrypted, err := f.service.Decrypt(ctx, testEnv, "pulsar-3", response, nonce)
	require.NoError(t, err)
	assert.Equal(t, `{"transfer":{"status":"success"}}`, string(decrypted))

	response[len(response)-1] ^= 0xff
	_, err = f.service.Decrypt(ctx, testEnv, "pulsar-3", response, nonce)
	assert.ErrorIs(t, err, interfaces.ErrDecryptionFailed)

	empty, err := f.service.Decrypt(ctx, testEnv, "pulsar-3", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.service.Encrypt(ctx, testEnv, "pulsar-3", "", json.RawMessage(`{"broken"`))
	assert.Error(t, err)

	assert.Equal(t, int32(1), server.current.Load(), "the consensus key is fetched once per context")
	assert.Equal(t, int32(0), server.legacy.Load())
}

func TestConsensusKeyLegacyFallback(t *testing.T) {
	ctx := context.Background()
	consensus := newStaticConsensus(t)
	server := newConsensusServer(t, consensus.pub, true)

	source := NewRESTConsensusKeySource(1, 5*time.Second, testLogger())
	key, err := source.ConsensusIOPubKey(ctx, server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, consensus.pub, key)
	assert.Equal(t, int32(1), server.current.Load())
	assert.Equal(t, int32(1), server.legacy.Load())

	down := httptest.NewServer(http.NotFoundHandler())
	defer down.Close()
	_, err = source.ConsensusIOPubKey(ctx, down.URL)
	assert.ErrorIs(t, err, ErrConsensusKeyUnavailable)
}

func TestEnigmaUtils(t *testing.T) {
	seed := make([]byte, SeedSize)
	seed[0] = 1

	_, err := NewEnigmaUtils("https://lcd.example", seed[:16], nil)
	assert.Error(t, err)

	consensus := newStaticConsensus(t)
	utils, err := NewEnigmaUtils("https://lcd.example", seed, consensus)
	require.NoError(t, err)

	expected, err := curve25519.X25519(seed, curve25519.Basepoint)
	require.NoError(t, err)
	assert.Equal(t, expected, utils.PubKey())

	nonce := make([]byte, NonceSize)
	key, err := utils.TxEncryptionKey(context.Background(), nonce)
	require.NoError(t, err)
	assert.Equal(t, networkTxKey(t, consensus.priv, expected, nonce), key)

	first, err := utils.Encrypt(context.Background(), "hash", []byte(`{}`))
	require.NoError(t, err)
	second, err := utils.Encrypt(context.Background(), "hash", []byte(`{}`))
	require.NoError(t, err)
	assert.NotEqual(t, first[:NonceSize], second[:NonceSize], "every message gets a fresh nonce")

	_, err = utils.Decrypt(context.Background(), []byte("ciphertext"), nonce[:8])
	assert.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
}
