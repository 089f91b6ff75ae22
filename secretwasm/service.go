package secretwasm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ruteri/wallet-background/cryptoutils"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/metrics"
	"github.com/ruteri/wallet-background/router"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize bounds the number of cached encryption contexts.
const DefaultCacheSize = 64

// SeedSignMemo is the memo of the sign doc whose signature seeds the encryption key.
const SeedSignMemo = "Create Keplr Secret encryption key. Only approve requests by Keplr."

// maxStaleRetries bounds how often a derivation raced by a purge is redone
// before its context is returned without caching.
const maxStaleRetries = 2

// ErrCorruptSeed is returned when a persisted seed does not decode to 32 bytes.
var ErrCorruptSeed = errors.New("corrupt seed record")

// Service derives per-chain encryption seeds from the account key and keeps
// the encryption contexts built from them.
type Service struct {
	chains    interfaces.ChainRegistry
	keys      interfaces.KeyManager
	store     interfaces.KVStore
	consensus ConsensusKeySource
	log       *slog.Logger
	metrics   *metrics.Metrics

	flight singleflight.Group

	// cacheMu orders inserts against purges, generation counts purges
	cacheMu    sync.Mutex
	cache      *lru.Cache[string, *EnigmaUtils]
	generation atomic.Uint64
}

// Config holds the service's tunables.
type Config struct {
	CacheSize int
}

// NewService creates the service and subscribes it to chain removal and, if
// keys supports it, key ring wipes. m may be nil.
func NewService(cfg Config, chains interfaces.ChainRegistry, keys interfaces.KeyManager, store interfaces.KVStore, consensus ConsensusKeySource, log *slog.Logger, m *metrics.Metrics) (*Service, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[string, *EnigmaUtils](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}

	s := &Service{
		chains:    chains,
		keys:      keys,
		store:     store,
		consensus: consensus,
		log:       log,
		metrics:   m,
		cache:     cache,
	}

	if err := chains.OnChainRemoved(s.onChainRemoved); err != nil {
		return nil, fmt.Errorf("failed to subscribe to chain removal: %w", err)
	}

	if notifier, ok := keys.(interfaces.KeyRingClearedNotifier); ok {
		if err := notifier.OnKeyRingCleared(s.onKeyRingCleared); err != nil {
			return nil, fmt.Errorf("failed to subscribe to key ring clear: %w", err)
		}
	}

	return s, nil
}

// GetPubkey returns the public key of the chain's encryption context.
func (s *Service) GetPubkey(ctx context.Context, env router.Env, chainID string) ([]byte, error) {
	utils, err := s.enigmaUtils(ctx, env, chainID)
	if err != nil {
		return nil, err
	}
	return utils.PubKey(), nil
}

// Encrypt encrypts a contract message for chainID. msg is sent in compact JSON form.
func (s *Service) Encrypt(ctx context.Context, env router.Env, chainID, codeHash string, msg json.RawMessage) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, msg); err != nil {
		return nil, fmt.Errorf("invalid contract message: %w", err)
	}

	utils, err := s.enigmaUtils(ctx, env, chainID)
	if err != nil {
		return nil, err
	}
	return utils.Encrypt(ctx, codeHash, compact.Bytes())
}

// Decrypt decrypts a contract response for chainID.
func (s *Service) Decrypt(ctx context.Context, env router.Env, chainID string, ciphertext, nonce []byte) ([]byte, error) {
	utils, err := s.enigmaUtils(ctx, env, chainID)
	if err != nil {
		return nil, err
	}
	return utils.Decrypt(ctx, ciphertext, nonce)
}

func (s *Service) enigmaUtils(ctx context.Context, env router.Env, chainID string) (*EnigmaUtils, error) {
	var utils *EnigmaUtils
	for attempt := 0; ; attempt++ {
		generation := s.generation.Load()

		info, err := s.chains.GetChainInfo(chainID)
		if err != nil {
			return nil, err
		}

		if s.keys.Status() == interfaces.KeyRingUninitialized {
			return nil, interfaces.ErrKeyRingNotInitialized
		}

		// revisions of one chain share the registered chain's seed and context
		seed, err := s.seed(ctx, env, info)
		if err != nil {
			return nil, err
		}

		cacheKey := info.ChainID + "-" + hex.EncodeToString(seed)

		cached, fresh, err := s.lookupOrInsert(cacheKey, generation, func() (*EnigmaUtils, error) {
			return NewEnigmaUtils(info.REST, seed, s.consensus)
		})
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}

		// purged while deriving, the chain or the key may be gone
		utils = fresh
		if attempt >= maxStaleRetries {
			break
		}
		s.log.Debug("Encryption context purged during derivation, retrying", slog.String("chainId", chainID))
	}

	return utils, nil
}

// lookupOrInsert returns the cached context for key, inserting a new one when
// no purge happened since generation. Otherwise the new context is returned
// as fresh and left out of the cache.
func (s *Service) lookupOrInsert(key string, generation uint64, create func() (*EnigmaUtils, error)) (*EnigmaUtils, *EnigmaUtils, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if utils, ok := s.cache.Get(key); ok {
		s.metrics.ContextCacheEvent("hit")
		return utils, nil, nil
	}

	utils, err := create()
	if err != nil {
		return nil, nil, err
	}

	if s.generation.Load() != generation {
		s.metrics.ContextCacheEvent("stale")
		return nil, utils, nil
	}

	s.cache.Add(key, utils)
	s.metrics.ContextCacheEvent("miss")
	return utils, nil, nil
}

// seed returns the persisted seed of the account on the registered chain info,
// deriving it with a user-approved signature if none exists. Concurrent calls
// for one account share a single derivation.
func (s *Service) seed(ctx context.Context, env router.Env, info interfaces.ChainInfo) ([]byte, error) {
	chainID := info.ChainID
	key, err := s.keys.GetKey(ctx, chainID)
	if err != nil {
		return nil, err
	}

	address, err := cryptoutils.Bech32Encode(info.Bech32Config.Bech32PrefixAccAddr, key.Address)
	if err != nil {
		return nil, err
	}

	storeKey := SeedStoreKey(chainID, address)

	// the derivation outlives a waiter that gives up, other waiters may still need it
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(storeKey, func() (any, error) {
		return s.loadOrDeriveSeed(flightCtx, env, chainID, storeKey)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		seed := res.Val.([]byte)
		out := make([]byte, len(seed))
		copy(out, seed)
		return out, nil
	case <-ctx.Done():
		return nil, interaction.ContextError(ctx.Err())
	}
}

func (s *Service) loadOrDeriveSeed(ctx context.Context, env router.Env, chainID, storeKey string) ([]byte, error) {
	stored, err := s.store.Get(ctx, storeKey)
	if err == nil {
		seed, err := hex.DecodeString(string(stored))
		if err != nil || len(seed) != SeedSize {
			s.metrics.SeedLookup("corrupt")
			return nil, fmt.Errorf("%w: %s", ErrCorruptSeed, storeKey)
		}
		s.metrics.SeedLookup("stored")
		return seed, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	payload, err := SeedSignDoc(chainID)
	if err != nil {
		return nil, err
	}

	sig, err := s.keys.Sign(ctx, env, chainID, payload)
	if err != nil {
		s.metrics.SeedLookup("rejected")
		return nil, err
	}

	digest := sha256.Sum256(sig)
	seed := digest[:]

	if err := s.store.Set(ctx, storeKey, []byte(hex.EncodeToString(seed))); err != nil {
		return nil, fmt.Errorf("failed to persist seed: %w", err)
	}

	s.metrics.SeedLookup("derived")
	s.log.Info("Derived encryption seed",
		slog.String("chainId", chainID),
		slog.String("origin", env.Origin))
	return seed, nil
}

func (s *Service) purge(reason string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.generation.Inc()
	s.cache.Purge()
	s.metrics.ContextCacheEvent("purge")
	s.log.Debug("Purged encryption contexts", slog.String("reason", reason))
}

func (s *Service) onChainRemoved(chainID string) {
	s.purge("chain removed: " + chainID)
}

func (s *Service) onKeyRingCleared() {
	s.purge("key ring cleared")
}

// SeedStoreKey is the store key of the seed of address on chainID.
func SeedStoreKey(chainID, bech32Address string) string {
	return "seed-" + chainID + "-" + bech32Address
}

type seedSignDoc struct {
	AccountNumber int               `json:"account_number"`
	ChainID       string            `json:"chain_id"`
	Fee           []json.RawMessage `json:"fee"`
	Memo          string            `json:"memo"`
	Msgs          []json.RawMessage `json:"msgs"`
	Sequence      int               `json:"sequence"`
}

// SeedSignDoc returns the canonical document signed to derive the seed of chainID.
func SeedSignDoc(chainID string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	err := enc.Encode(seedSignDoc{
		ChainID: chainID,
		Fee:     []json.RawMessage{},
		Memo:    SeedSignMemo,
		Msgs:    []json.RawMessage{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign doc: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
