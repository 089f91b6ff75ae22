package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ruteri/wallet-background/interfaces"
)

// Capability names one privileged operation family.
type Capability string

const (
	CapChainInfo         Capability = "chain-info"
	CapChainInfoFull     Capability = "chain-info-full"
	CapSuggestChain      Capability = "suggest-chain"
	CapRemoveChain       Capability = "remove-chain"
	CapSecretWasm        Capability = "secret-wasm"
	CapKeyRing           Capability = "keyring"
	CapInteraction       Capability = "interaction"
	CapManagePermissions Capability = "manage-permissions"
)

// Capabilities lists every known capability.
var Capabilities = []Capability{
	CapChainInfo,
	CapChainInfoFull,
	CapSuggestChain,
	CapRemoveChain,
	CapSecretWasm,
	CapKeyRing,
	CapInteraction,
	CapManagePermissions,
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

// AllChains as a grant's ChainID matches every chain id, including the empty
// one used by chain-less capabilities.
const AllChains = "*"

const grantsKey = "permissions"

// Grant is one (origin, chain, capability) permission.
type Grant struct {
	Origin     string     `json:"origin"`
	ChainID    string     `json:"chainId"`
	Capability Capability `json:"capability"`
}

type grantKey struct {
	origin     string
	chain      string
	capability Capability
}

func keyOf(g Grant) grantKey {
	chain := g.ChainID
	if chain != AllChains {
		chain = interfaces.ChainIdentifierOf(chain)
	}
	return grantKey{origin: g.Origin, chain: chain, capability: g.Capability}
}

// Gate answers whether an origin may use a capability on a chain.
// Grants are additive; absence of a grant means deny.
type Gate struct {
	mu     sync.RWMutex
	grants map[grantKey]Grant

	// writeMu serializes persistence so the stored list never interleaves
	writeMu sync.Mutex

	store interfaces.KVStore
	log   *slog.Logger
}

// NewGate creates an empty gate persisting to store. store may be nil for a
// purely in-memory gate.
func NewGate(store interfaces.KVStore, log *slog.Logger) *Gate {
	return &Gate{
		grants: make(map[grantKey]Grant),
		store:  store,
		log:    log,
	}
}

// Load replaces the in-memory grants with the persisted ones.
func (g *Gate) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}

	data, err := g.store.Get(ctx, grantsKey)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	var stored []Grant
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to decode permissions: %w", err)
	}

	grants := make(map[grantKey]Grant, len(stored))
	for _, grant := range stored {
		grants[keyOf(grant)] = grant
	}

	g.mu.Lock()
	g.grants = grants
	g.mu.Unlock()

	g.log.Info("Loaded permissions", slog.Int("grants", len(grants)))
	return nil
}

// Check is a pure lookup.
func (g *Gate) Check(origin, chainID string, capability Capability) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.grants[grantKey{origin: origin, chain: AllChains, capability: capability}]; ok {
		return true
	}

	if chainID == AllChains {
		return false
	}

	_, ok := g.grants[grantKey{origin: origin, chain: interfaces.ChainIdentifierOf(chainID), capability: capability}]
	return ok
}

// Require returns a *DeniedError when Check fails.
func (g *Gate) Require(origin, chainID string, capability Capability) error {
	if g.Check(origin, chainID, capability) {
		return nil
	}

	g.log.Debug("Permission denied",
		slog.String("origin", origin),
		slog.String("chainId", chainID),
		slog.String("capability", string(capability)))

	return &DeniedError{Origin: origin, ChainID: chainID, Capability: capability}
}

// Grant adds grants and persists the result.
func (g *Gate) Grant(ctx context.Context, grants ...Grant) error {
	for _, grant := range grants {
		if grant.Origin == "" {
			return errors.New("grant without origin")
		}
		if !grant.Capability.Valid() {
			return fmt.Errorf("unknown capability %q", grant.Capability)
		}
	}

	return g.update(ctx, func(m map[grantKey]Grant) {
		for _, grant := range grants {
			m[keyOf(grant)] = grant
		}
	})
}

// Revoke removes grants and persists the result. Revoking an absent grant is a no-op.
func (g *Gate) Revoke(ctx context.Context, grants ...Grant) error {
	return g.update(ctx, func(m map[grantKey]Grant) {
		for _, grant := range grants {
			delete(m, keyOf(grant))
		}
	})
}

// RevokeChain drops every grant scoped to chainID. Wildcard grants survive.
func (g *Gate) RevokeChain(ctx context.Context, chainID string) error {
	identifier := interfaces.ChainIdentifierOf(chainID)
	return g.update(ctx, func(m map[grantKey]Grant) {
		for k := range m {
			if k.chain == identifier {
				delete(m, k)
			}
		}
	})
}

// OnChainRemoved is subscribed to chain removal.
func (g *Gate) OnChainRemoved(chainID string) {
	if err := g.RevokeChain(context.Background(), chainID); err != nil {
		g.log.Error("Failed to revoke permissions of removed chain",
			slog.String("chainId", chainID),
			"err", err)
	}
}

// Grants returns the grants of origin, or all grants when origin is empty,
// in a stable order.
func (g *Gate) Grants(origin string) []Grant {
	g.mu.RLock()
	res := make([]Grant, 0, len(g.grants))
	for _, grant := range g.grants {
		if origin == "" || grant.Origin == origin {
			res = append(res, grant)
		}
	}
	g.mu.RUnlock()

	sortGrants(res)
	return res
}

// Bootstrap grants every capability on every chain to origin.
func (g *Gate) Bootstrap(ctx context.Context, origin string) error {
	grants := make([]Grant, 0, len(Capabilities))
	for _, capability := range Capabilities {
		grants = append(grants, Grant{Origin: origin, ChainID: AllChains, Capability: capability})
	}
	return g.Grant(ctx, grants...)
}

// update applies fn to a copy of the grants, persists the copy and swaps it in.
func (g *Gate) update(ctx context.Context, fn func(map[grantKey]Grant)) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.RLock()
	next := make(map[grantKey]Grant, len(g.grants))
	for k, v := range g.grants {
		next[k] = v
	}
	g.mu.RUnlock()

	fn(next)

	if g.store != nil {
		list := make([]Grant, 0, len(next))
		for _, grant := range next {
			list = append(list, grant)
		}
		sortGrants(list)

		data, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to encode permissions: %w", err)
		}
		if err := g.store.Set(ctx, grantsKey, data); err != nil {
			return fmt.Errorf("failed to persist permissions: %w", err)
		}
	}

	g.mu.Lock()
	g.grants = next
	g.mu.Unlock()

	return nil
}

func sortGrants(grants []Grant) {
	sort.Slice(grants, func(i, j int) bool {
		a, b := grants[i], grants[j]
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		if a.ChainID != b.ChainID {
			return a.ChainID < b.ChainID
		}
		return a.Capability < b.Capability
	})
}
