package keyring

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/wallet-background/cryptoutils"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/router"
	"github.com/tyler-smith/go-bip39"
)

// TopicKeyRingCleared is published after the vault is deleted.
const TopicKeyRingCleared = interfaces.TopicKeyRingCleared

// AlgoSecp256k1 is the only key algorithm of the ring.
const AlgoSecp256k1 = "secp256k1"

const vaultKey = "vault"

var (
	ErrKeyRingExists   = errors.New("key ring is already initialized")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// ChainInfoGetter resolves the chain descriptor that selects the derivation path.
type ChainInfoGetter interface {
	GetChainInfo(chainID string) (interfaces.ChainInfo, error)
}

// Service is a single-mnemonic key ring. The mnemonic is persisted sealed with
// the user's password and the master key is held in memory while unlocked.
type Service struct {
	mu       sync.RWMutex
	hasVault bool
	master   *hdkeychain.ExtendedKey

	store    interfaces.KVStore
	chains   ChainInfoGetter
	approver interaction.Approver
	bus      evbus.Bus
	log      *slog.Logger
}

// NewService creates a key ring persisting its vault in store.
func NewService(store interfaces.KVStore, chains ChainInfoGetter, approver interaction.Approver, bus evbus.Bus, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		chains:   chains,
		approver: approver,
		bus:      bus,
		log:      log,
	}
}

// Load checks whether a vault was persisted. The ring starts locked.
func (s *Service) Load(ctx context.Context) error {
	_, err := s.store.Get(ctx, vaultKey)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load key ring vault: %w", err)
	}

	s.mu.Lock()
	s.hasVault = true
	s.mu.Unlock()
	return nil
}

// Status reports the lifecycle state of the ring.
func (s *Service) Status() interfaces.KeyRingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Service) statusLocked() interfaces.KeyRingStatus {
	switch {
	case !s.hasVault:
		return interfaces.KeyRingUninitialized
	case s.master == nil:
		return interfaces.KeyRingLocked
	default:
		return interfaces.KeyRingActive
	}
}

func (s *Service) requireActiveLocked() error {
	switch s.statusLocked() {
	case interfaces.KeyRingUninitialized:
		return interfaces.ErrKeyRingNotInitialized
	case interfaces.KeyRingLocked:
		return interfaces.ErrKeyRingLocked
	}
	return nil
}

// GenerateMnemonic returns a fresh 24 word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// CreateMnemonicKey seals mnemonic with password and leaves the ring unlocked.
func (s *Service) CreateMnemonicKey(ctx context.Context, mnemonic, password string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return ErrInvalidMnemonic
	}

	master, err := masterKey(mnemonic)
	if err != nil {
		return err
	}

	sealed, err := cryptoutils.EncryptWithPassword(password, []byte(mnemonic))
	if err != nil {
		return fmt.Errorf("failed to seal mnemonic: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasVault {
		return ErrKeyRingExists
	}

	if err := s.store.Set(ctx, vaultKey, sealed); err != nil {
		return fmt.Errorf("failed to persist key ring vault: %w", err)
	}

	s.hasVault = true
	s.master = master
	s.log.Info("Key ring created")
	return nil
}

// Unlock opens the vault with password.
func (s *Service) Unlock(ctx context.Context, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mnemonic, err := s.openVaultLocked(ctx, password)
	if err != nil {
		return err
	}

	master, err := masterKey(mnemonic)
	if err != nil {
		return err
	}

	s.master = master
	s.log.Info("Key ring unlocked")
	return nil
}

// Lock drops the in-memory key.
func (s *Service) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasVault {
		return interfaces.ErrKeyRingNotInitialized
	}

	s.master = nil
	s.log.Info("Key ring locked")
	return nil
}

// Clear deletes the vault after checking password. Subscribers of
// TopicKeyRingCleared run before Clear returns.
func (s *Service) Clear(ctx context.Context, password string) error {
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := s.openVaultLocked(ctx, password); err != nil {
			return err
		}

		if err := s.store.Delete(ctx, vaultKey); err != nil {
			return fmt.Errorf("failed to delete key ring vault: %w", err)
		}

		s.hasVault = false
		s.master = nil
		return nil
	}()
	if err != nil {
		return err
	}

	s.log.Warn("Key ring cleared")
	if s.bus != nil {
		s.bus.Publish(TopicKeyRingCleared)
	}
	return nil
}

// OnKeyRingCleared subscribes fn to key ring wipes.
func (s *Service) OnKeyRingCleared(fn func()) error {
	if s.bus == nil {
		return errors.New("key ring has no event bus")
	}
	return s.bus.Subscribe(TopicKeyRingCleared, fn)
}

func (s *Service) openVaultLocked(ctx context.Context, password string) (string, error) {
	if !s.hasVault {
		return "", interfaces.ErrKeyRingNotInitialized
	}

	sealed, err := s.store.Get(ctx, vaultKey)
	if err != nil {
		return "", fmt.Errorf("failed to read key ring vault: %w", err)
	}

	mnemonic, err := cryptoutils.DecryptWithPassword(password, sealed)
	if err != nil {
		return "", err
	}
	return string(mnemonic), nil
}

// GetKey returns the account key of chainID at m/44'/coinType'/0'/0/0.
func (s *Service) GetKey(ctx context.Context, chainID string) (interfaces.Key, error) {
	info, err := s.chains.GetChainInfo(chainID)
	if err != nil {
		return interfaces.Key{}, err
	}

	priv, err := s.privateKey(info.BIP44.CoinType)
	if err != nil {
		return interfaces.Key{}, err
	}

	return keyOf(priv, info.Bech32Config.Bech32PrefixAccAddr)
}

// Sign asks the user to approve message and returns the 64 byte r||s
// secp256k1 signature over its SHA-256 digest. Signatures are deterministic.
func (s *Service) Sign(ctx context.Context, env router.Env, chainID string, message []byte) ([]byte, error) {
	info, err := s.chains.GetChainInfo(chainID)
	if err != nil {
		return nil, err
	}

	priv, err := s.privateKey(info.BIP44.CoinType)
	if err != nil {
		return nil, err
	}

	key, err := keyOf(priv, info.Bech32Config.Bech32PrefixAccAddr)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(SignRequestData{Signer: key.Bech32Address, Message: message})
	if err != nil {
		return nil, err
	}

	err = s.approver.RequestApproval(ctx, interaction.Request{
		Type:    interaction.TypeSign,
		Origin:  env.Origin,
		ChainID: chainID,
		Data:    data,
	})
	if err != nil {
		return nil, err
	}

	// the ring may have been locked or cleared while the user was deciding
	if _, err := s.privateKey(info.BIP44.CoinType); err != nil {
		return nil, err
	}

	ecdsaKey, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, fmt.Errorf("failed to convert signing key: %w", err)
	}

	digest := sha256.Sum256(message)
	sig, err := crypto.Sign(digest[:], ecdsaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	s.log.Debug("Signed message",
		slog.String("chainId", chainID),
		slog.String("origin", env.Origin),
		slog.String("signer", key.Bech32Address))
	return sig[:64], nil
}

// SignRequestData is the payload shown to the user for a signature request.
type SignRequestData struct {
	Signer  string `json:"signer"`
	Message []byte `json:"message"`
}

func (s *Service) privateKey(coinType uint32) (*btcec.PrivateKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireActiveLocked(); err != nil {
		return nil, err
	}
	return deriveAccountKey(s.master, coinType)
}

func masterKey(mnemonic string) (*hdkeychain.ExtendedKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	return master, nil
}

func deriveAccountKey(master *hdkeychain.ExtendedKey, coinType uint32) (*btcec.PrivateKey, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart,
		0,
		0,
	}

	key := master
	for _, index := range path {
		child, err := key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
		key = child
	}

	return key.ECPrivKey()
}

func keyOf(priv *btcec.PrivateKey, prefix string) (interfaces.Key, error) {
	pubKey := priv.PubKey().SerializeCompressed()

	address, err := cryptoutils.CosmosAddress(pubKey)
	if err != nil {
		return interfaces.Key{}, err
	}

	bech32Address, err := cryptoutils.Bech32Encode(prefix, address)
	if err != nil {
		return interfaces.Key{}, err
	}

	return interfaces.Key{
		Algo:          AlgoSecp256k1,
		PubKey:        pubKey,
		Address:       address,
		Bech32Address: bech32Address,
	}, nil
}
