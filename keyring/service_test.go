package keyring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	evbus "github.com/asaskevich/EventBus"
	"github.com/ruteri/wallet-background/cryptoutils"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
	"github.com/ruteri/wallet-background/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassword = "correct horse battery staple"
)

type stubChains map[string]interfaces.ChainInfo

func (s stubChains) GetChainInfo(chainID string) (interfaces.ChainInfo, error) {
	info, ok := s[chainID]
	if !ok {
		return interfaces.ChainInfo{}, fmt.Errorf("%w: %s", interfaces.ErrUnknownChain, chainID)
	}
	return info, nil
}

func testChains() stubChains {
	return stubChains{
		"cosmoshub-4": {
			ChainID:      "cosmoshub-4",
			BIP44:        interfaces.BIP44{CoinType: 118},
			Bech32Config: interfaces.NewBech32ConfigFromPrefix("cosmos"),
		},
		"secret-4": {
			ChainID:      "secret-4",
			BIP44:        interfaces.BIP44{CoinType: 529},
			Bech32Config: interfaces.NewBech32ConfigFromPrefix("secret"),
		},
	}
}

type mockApprover struct {
	mock.Mock
}

func (m *mockApprover) RequestApproval(ctx context.Context, req interaction.Request) error {
	return m.Called(ctx, req).Error(0)
}

func newTestService(t *testing.T, approver interaction.Approver) (*Service, *storage.MemoryBackend, evbus.Bus) {
	store := storage.NewMemoryBackend(slog.New(slog.NewTextHandler(io.Discard, nil)))
	bus := evbus.New()
	s := NewService(store, testChains(), approver, bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Load(context.Background()))
	return s, store, bus
}

func TestKeyRingLifecycle(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestService(t, interaction.AutoApprover{})

	assert.Equal(t, interfaces.KeyRingUninitialized, s.Status())
	_, err := s.GetKey(ctx, "cosmoshub-4")
	assert.ErrorIs(t, err, interfaces.ErrKeyRingNotInitialized)
	assert.ErrorIs(t, s.Unlock(ctx, testPassword), interfaces.ErrKeyRingNotInitialized)
	assert.ErrorIs(t, s.Lock(), interfaces.ErrKeyRingNotInitialized)

	assert.ErrorIs(t, s.CreateMnemonicKey(ctx, "abandon abandon", testPassword), ErrInvalidMnemonic)
	require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))
	assert.Equal(t, interfaces.KeyRingActive, s.Status())
	assert.ErrorIs(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword), ErrKeyRingExists)

	sealed, err := store.Get(ctx, vaultKey)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "abandon")

	require.NoError(t, s.Lock())
	assert.Equal(t, interfaces.KeyRingLocked, s.Status())
	_, err = s.GetKey(ctx, "cosmoshub-4")
	assert.ErrorIs(t, err, interfaces.ErrKeyRingLocked)

	assert.ErrorIs(t, s.Unlock(ctx, "wrong password"), cryptoutils.ErrWrongPassword)
	assert.Equal(t, interfaces.KeyRingLocked, s.Status())
	require.NoError(t, s.Unlock(ctx, testPassword))
	assert.Equal(t, interfaces.KeyRingActive, s.Status())

	// a restarted ring finds the vault and starts locked
	restarted := NewService(store, testChains(), interaction.AutoApprover{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, restarted.Load(ctx))
	assert.Equal(t, interfaces.KeyRingLocked, restarted.Status())
}

func TestGetKey(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t, interaction.AutoApprover{})
	require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))

	testCases := []struct {
		chainID string
		pubKey  string
		address string
		bech32  string
	}{
		{
			chainID: "cosmoshub-4",
			pubKey:  "024f4e2ad99c34d60b9ba6283c9431a8418af8673212961f97a77b6377fcd05b62",
			address: "28ff5c6d57d8cfd492b6fb42614536ed648e01fd",
			bech32:  "cosmos19rl4cm2hmr8afy4kldpxz3fka4jguq0auqdal4",
		},
		{
			chainID: "secret-4",
			pubKey:  "0217fead3b69ef9460a38635f342d9714c2e183965a5a6f250de20f4f0178db587",
			address: "45bf95032b6d7c8a83e3e1b87b1abb2f8fea2f5a",
			bech32:  "secret1gkle2qetd47g4qlruxu8kx4m97875t66qsgr0p",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.chainID, func(t *testing.T) {
			key, err := s.GetKey(ctx, tc.chainID)
			require.NoError(t, err)
			assert.Equal(t, AlgoSecp256k1, key.Algo)
			assert.Equal(t, tc.pubKey, hex.EncodeToString(key.PubKey))
			assert.Equal(t, tc.address, hex.EncodeToString(key.Address))
			assert.Equal(t, tc.bech32, key.Bech32Address)
		})
	}

	_, err := s.GetKey(ctx, "unknown-1")
	assert.ErrorIs(t, err, interfaces.ErrUnknownChain)
}

func TestSign(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"account_number":0,"chain_id":"secret-4","fee":[],"memo":"Create Keplr Secret encryption key. Only approve requests by Keplr.","msgs":[],"sequence":0}`)
	env := router.Env{Origin: "https://app.example"}

	t.Run("deterministic signature after approval", func(t *testing.T) {
		approver := &mockApprover{}
		s, _, _ := newTestService(t, approver)
		require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))

		approver.On("RequestApproval", mock.Anything, mock.MatchedBy(func(req interaction.Request) bool {
			var data SignRequestData
			if err := json.Unmarshal(req.Data, &data); err != nil {
				return false
			}
			return req.Type == interaction.TypeSign &&
				req.Origin == env.Origin &&
				req.ChainID == "secret-4" &&
				data.Signer == "secret1gkle2qetd47g4qlruxu8kx4m97875t66qsgr0p" &&
				string(data.Message) == string(payload)
		})).Return(nil).Twice()

		sig, err := s.Sign(ctx, env, "secret-4", payload)
		require.NoError(t, err)
		assert.Equal(t, "301fefea5d0993e0d4ef8e4d2d9343422641dbe2d84a16a94f2d645640903adc3d7be0407f8ee59501ee81b799bc679e68e851742b64076f8e60d7d610e864bb", hex.EncodeToString(sig))

		seed := sha256.Sum256(sig)
		assert.Equal(t, "34a5c347945898e923815f47700c1f2aa7d876cbe0378ab2d3762a1b4d670fba", hex.EncodeToString(seed[:]))

		again, err := s.Sign(ctx, env, "secret-4", payload)
		require.NoError(t, err)
		assert.Equal(t, sig, again)

		approver.AssertExpectations(t)
	})

	t.Run("rejection", func(t *testing.T) {
		approver := &mockApprover{}
		s, _, _ := newTestService(t, approver)
		require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))

		approver.On("RequestApproval", mock.Anything, mock.Anything).Return(interfaces.ErrSigningRejected)

		_, err := s.Sign(ctx, env, "secret-4", payload)
		assert.ErrorIs(t, err, interfaces.ErrSigningRejected)
	})

	t.Run("locked ring never asks the user", func(t *testing.T) {
		approver := &mockApprover{}
		s, _, _ := newTestService(t, approver)
		require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))
		require.NoError(t, s.Lock())

		_, err := s.Sign(ctx, env, "secret-4", payload)
		assert.ErrorIs(t, err, interfaces.ErrKeyRingLocked)
		approver.AssertNotCalled(t, "RequestApproval", mock.Anything, mock.Anything)
	})

	t.Run("locked while waiting for approval", func(t *testing.T) {
		approver := &mockApprover{}
		s, _, _ := newTestService(t, approver)
		require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))

		approver.On("RequestApproval", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { require.NoError(t, s.Lock()) }).
			Return(nil)

		_, err := s.Sign(ctx, env, "secret-4", payload)
		assert.ErrorIs(t, err, interfaces.ErrKeyRingLocked)
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestService(t, interaction.AutoApprover{})
	require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))

	cleared := 0
	require.NoError(t, s.OnKeyRingCleared(func() {
		assert.Equal(t, interfaces.KeyRingUninitialized, s.Status())
		cleared++
	}))

	assert.ErrorIs(t, s.Clear(ctx, "wrong password"), cryptoutils.ErrWrongPassword)
	assert.Equal(t, 0, cleared)
	assert.Equal(t, interfaces.KeyRingActive, s.Status())

	require.NoError(t, s.Clear(ctx, testPassword))
	assert.Equal(t, 1, cleared)
	assert.Equal(t, interfaces.KeyRingUninitialized, s.Status())

	_, err := store.Get(ctx, vaultKey)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	assert.ErrorIs(t, s.Clear(ctx, testPassword), interfaces.ErrKeyRingNotInitialized)
	assert.Equal(t, 1, cleared)

	require.NoError(t, s.CreateMnemonicKey(ctx, testMnemonic, testPassword))
}

func TestKeyRingRoute(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, _, _ := newTestService(t, interaction.AutoApprover{Log: log})

	gate := permission.NewGate(nil, log)
	require.NoError(t, gate.Bootstrap(ctx, "internal"))
	require.NoError(t, gate.Grant(ctx, permission.Grant{Origin: "https://app.example", ChainID: "cosmoshub-4", Capability: permission.CapKeyRing}))

	r := router.New(log, nil)
	require.NoError(t, Init(r, s, gate))

	dispatch := func(origin, kind, payload string) (any, error) {
		return r.Dispatch(ctx, router.Env{Origin: origin}, router.Envelope{Route: Route, Kind: kind, Payload: json.RawMessage(payload)})
	}

	res, err := dispatch("internal", "GetKeyRingStatus", `{}`)
	require.NoError(t, err)
	assert.Equal(t, StatusResponse{Status: interfaces.KeyRingUninitialized}, res)

	_, err = dispatch("https://app.example", "CreateMnemonicKey", fmt.Sprintf(`{"mnemonic":%q,"password":%q}`, testMnemonic, testPassword))
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)
	assert.Equal(t, interfaces.KeyRingUninitialized, s.Status())

	res, err = dispatch("internal", "CreateMnemonicKey", fmt.Sprintf(`{"mnemonic":%q,"password":%q}`, testMnemonic, testPassword))
	require.NoError(t, err)
	assert.Equal(t, StatusResponse{Status: interfaces.KeyRingActive}, res)

	res, err = dispatch("https://app.example", "GetKey", `{"chainId":"cosmoshub-4"}`)
	require.NoError(t, err)
	assert.Equal(t, "cosmos19rl4cm2hmr8afy4kldpxz3fka4jguq0auqdal4", res.(interfaces.Key).Bech32Address)

	_, err = dispatch("https://app.example", "GetKey", `{"chainId":"secret-4"}`)
	assert.ErrorIs(t, err, permission.ErrPermissionDenied)

	_, err = dispatch("internal", "UnlockKeyRing", `{"password":""}`)
	assert.ErrorIs(t, err, router.ErrInvalidMessage)

	res, err = dispatch("internal", "LockKeyRing", `{}`)
	require.NoError(t, err)
	assert.Equal(t, StatusResponse{Status: interfaces.KeyRingLocked}, res)
}

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 24)
}
