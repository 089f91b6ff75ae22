package chains

import (
	"errors"

	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/router"
)

// Route is the router route served by this package.
const Route = "chains"

// Kinds accepted on the chains route.
var (
	GetChainInfosWithCoreTypesKind    = router.NewKind[GetChainInfosWithCoreTypesMsg]("GetChainInfosWithCoreTypes")
	GetChainInfosWithoutEndpointsKind = router.NewKind[GetChainInfosWithoutEndpointsMsg]("GetChainInfosWithoutEndpoints")
	SuggestChainInfoKind              = router.NewKind[SuggestChainInfoMsg]("SuggestChainInfo")
	RemoveSuggestedChainInfoKind      = router.NewKind[RemoveSuggestedChainInfoMsg]("RemoveSuggestedChainInfo")
)

// GetChainInfosWithCoreTypesMsg lists every chain with its endpoints.
type GetChainInfosWithCoreTypesMsg struct{}

func (m *GetChainInfosWithCoreTypesMsg) ValidateBasic() error { return nil }

// GetChainInfosWithoutEndpointsMsg lists every chain with rpc and rest stripped.
type GetChainInfosWithoutEndpointsMsg struct{}

func (m *GetChainInfosWithoutEndpointsMsg) ValidateBasic() error { return nil }

// SuggestChainInfoMsg carries a full chain descriptor. Its content is
// validated by the service so that failures carry ErrInvalidChainDescriptor.
type SuggestChainInfoMsg struct {
	ChainInfo interfaces.ChainInfo `json:"chainInfo"`
}

// ValidateBasic requires a chain id.
func (m *SuggestChainInfoMsg) ValidateBasic() error {
	if m.ChainInfo.ChainID == "" {
		return errors.New("chain id is empty")
	}
	return nil
}

// RemoveSuggestedChainInfoMsg removes a chain added by SuggestChainInfo.
type RemoveSuggestedChainInfoMsg struct {
	ChainID string `json:"chainId"`
}

// ValidateBasic requires a chain id.
func (m *RemoveSuggestedChainInfoMsg) ValidateBasic() error {
	if m.ChainID == "" {
		return errors.New("chain id is empty")
	}
	return nil
}

// ChainInfosResponse wraps chain lists.
type ChainInfosResponse[T any] struct {
	ChainInfos []T `json:"chainInfos"`
}
