package chains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/ruteri/wallet-background/cryptoutils"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/router"
)

// TopicChainRemoved is published with the removed chain id.
const TopicChainRemoved = interfaces.TopicChainRemoved

const suggestedKey = "suggested"

// Service is the chain registry: immutable embedded chains plus chains
// suggested by applications and approved by the user.
type Service struct {
	mu        sync.RWMutex
	embedded  []interfaces.ChainInfo
	suggested []interfaces.ChainInfo

	store    interfaces.KVStore
	bus      evbus.Bus
	approver interaction.Approver
	log      *slog.Logger
}

// NewService creates a registry over the embedded chains. store holds the
// suggested chains and may be nil.
func NewService(embedded []interfaces.ChainInfo, store interfaces.KVStore, bus evbus.Bus, approver interaction.Approver, log *slog.Logger) *Service {
	return &Service{
		embedded: embedded,
		store:    store,
		bus:      bus,
		approver: approver,
		log:      log,
	}
}

// Load reads the persisted suggested chains.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	data, err := s.store.Get(ctx, suggestedKey)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load suggested chains: %w", err)
	}

	var suggested []interfaces.ChainInfo
	if err := json.Unmarshal(data, &suggested); err != nil {
		return fmt.Errorf("failed to decode suggested chains: %w", err)
	}

	s.mu.Lock()
	s.suggested = suggested
	s.mu.Unlock()

	s.log.Info("Loaded suggested chains", slog.Int("count", len(suggested)))
	return nil
}

// GetChainInfos returns embedded chains followed by suggested ones.
func (s *Service) GetChainInfos() []interfaces.ChainInfoWithCoreTypes {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]interfaces.ChainInfoWithCoreTypes, 0, len(s.embedded)+len(s.suggested))
	for _, info := range s.embedded {
		res = append(res, interfaces.ChainInfoWithCoreTypes{ChainInfo: info, Embedded: true})
	}
	for _, info := range s.suggested {
		res = append(res, interfaces.ChainInfoWithCoreTypes{ChainInfo: info})
	}
	return res
}

// GetChainInfosWithoutEndpoints returns every chain without node endpoints.
func (s *Service) GetChainInfosWithoutEndpoints() []interfaces.ChainInfoWithoutEndpoints {
	infos := s.GetChainInfos()
	res := make([]interfaces.ChainInfoWithoutEndpoints, 0, len(infos))
	for _, info := range infos {
		res = append(res, info.WithoutEndpoints())
	}
	return res
}

// GetChainInfo resolves a chain id by identifier, so a revision bump of a
// registered chain resolves to the registered descriptor.
func (s *Service) GetChainInfo(chainID string) (interfaces.ChainInfo, error) {
	info, _, ok := s.lookup(chainID)
	if !ok {
		return interfaces.ChainInfo{}, fmt.Errorf("%w: %s", interfaces.ErrUnknownChain, chainID)
	}
	return info, nil
}

// HasChainInfo reports whether chainID resolves.
func (s *Service) HasChainInfo(chainID string) bool {
	_, _, ok := s.lookup(chainID)
	return ok
}

func (s *Service) lookup(chainID string) (interfaces.ChainInfo, bool, bool) {
	identifier := interfaces.ChainIdentifierOf(chainID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, info := range s.embedded {
		if interfaces.ChainIdentifierOf(info.ChainID) == identifier {
			return info, true, true
		}
	}
	for _, info := range s.suggested {
		if interfaces.ChainIdentifierOf(info.ChainID) == identifier {
			return info, false, true
		}
	}
	return interfaces.ChainInfo{}, false, false
}

// SuggestChainInfo validates info, asks the user for approval and stores it.
// Suggesting an embedded chain succeeds without changes; suggesting an
// already suggested chain replaces it.
func (s *Service) SuggestChainInfo(ctx context.Context, env router.Env, info interfaces.ChainInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if err := validateBech32Config(&info); err != nil {
		return err
	}

	if _, embedded, ok := s.lookup(info.ChainID); ok && embedded {
		s.log.Debug("Suggested chain is embedded, ignoring", slog.String("chainId", info.ChainID))
		return nil
	}

	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	err = s.approver.RequestApproval(ctx, interaction.Request{
		Type:    interaction.TypeSuggestChain,
		Origin:  env.Origin,
		ChainID: info.ChainID,
		Data:    data,
	})
	if err != nil {
		return err
	}

	identifier := interfaces.ChainIdentifierOf(info.ChainID)

	s.mu.Lock()
	defer s.mu.Unlock()

	// embedded chains are fixed, only suggested entries get replaced
	next := make([]interfaces.ChainInfo, 0, len(s.suggested)+1)
	for _, existing := range s.suggested {
		if interfaces.ChainIdentifierOf(existing.ChainID) != identifier {
			next = append(next, existing)
		}
	}
	next = append(next, info)

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.suggested = next

	s.log.Info("Chain suggested",
		slog.String("chainId", info.ChainID),
		slog.String("origin", env.Origin))
	return nil
}

// RemoveChainInfo removes a suggested chain. Removing an unknown or embedded
// chain is a successful no-op. Subscribers of TopicChainRemoved run before
// RemoveChainInfo returns.
func (s *Service) RemoveChainInfo(ctx context.Context, chainID string) error {
	identifier := interfaces.ChainIdentifierOf(chainID)

	removed, err := func() (string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var removed string
		next := make([]interfaces.ChainInfo, 0, len(s.suggested))
		for _, existing := range s.suggested {
			if interfaces.ChainIdentifierOf(existing.ChainID) == identifier {
				removed = existing.ChainID
				continue
			}
			next = append(next, existing)
		}

		if removed == "" {
			return "", nil
		}

		if err := s.persist(ctx, next); err != nil {
			return "", err
		}
		s.suggested = next
		return removed, nil
	}()
	if err != nil {
		return err
	}

	if removed == "" {
		s.log.Debug("Chain to remove is not suggested", slog.String("chainId", chainID))
		return nil
	}

	s.log.Info("Chain removed", slog.String("chainId", removed))
	if s.bus != nil {
		s.bus.Publish(TopicChainRemoved, removed)
	}
	return nil
}

// OnChainRemoved subscribes fn to chain removal.
func (s *Service) OnChainRemoved(fn interfaces.ChainRemovedFunc) error {
	if s.bus == nil {
		return errors.New("chain registry has no event bus")
	}
	return s.bus.Subscribe(TopicChainRemoved, func(chainID string) { fn(chainID) })
}

func (s *Service) persist(ctx context.Context, suggested []interfaces.ChainInfo) error {
	if s.store == nil {
		return nil
	}

	data, err := json.Marshal(suggested)
	if err != nil {
		return fmt.Errorf("failed to encode suggested chains: %w", err)
	}
	if err := s.store.Set(ctx, suggestedKey, data); err != nil {
		return fmt.Errorf("failed to persist suggested chains: %w", err)
	}
	return nil
}

// validateBech32Config checks that every prefix yields a decodable address.
func validateBech32Config(info *interfaces.ChainInfo) error {
	probe := make([]byte, cryptoutils.CosmosAddressLength)
	cfg := info.Bech32Config
	for _, prefix := range []string{
		cfg.Bech32PrefixAccAddr,
		cfg.Bech32PrefixAccPub,
		cfg.Bech32PrefixValAddr,
		cfg.Bech32PrefixValPub,
		cfg.Bech32PrefixConsAddr,
		cfg.Bech32PrefixConsPub,
	} {
		encoded, err := cryptoutils.Bech32Encode(prefix, probe)
		if err != nil {
			return fmt.Errorf("%w: bech32 prefix %q: %v", interfaces.ErrInvalidChainDescriptor, prefix, err)
		}
		if _, err := cryptoutils.Bech32Decode(prefix, encoded); err != nil {
			return fmt.Errorf("%w: bech32 prefix %q: %v", interfaces.ErrInvalidChainDescriptor, prefix, err)
		}
	}
	return nil
}
