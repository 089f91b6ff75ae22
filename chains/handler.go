package chains

import (
	"context"
	"fmt"

	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
)

// NewHandler serves the chains route. Every kind is authorized before the
// service is touched.
func NewHandler(service *Service, gate *permission.Gate) router.HandlerFunc {
	return func(ctx context.Context, env router.Env, msg router.Message) (any, error) {
		switch msg := msg.(type) {
		case *GetChainInfosWithCoreTypesMsg:
			if err := gate.Require(env.Origin, "", permission.CapChainInfoFull); err != nil {
				return nil, err
			}
			return ChainInfosResponse[interfaces.ChainInfoWithCoreTypes]{ChainInfos: service.GetChainInfos()}, nil

		case *GetChainInfosWithoutEndpointsMsg:
			if err := gate.Require(env.Origin, "", permission.CapChainInfo); err != nil {
				return nil, err
			}
			return ChainInfosResponse[interfaces.ChainInfoWithoutEndpoints]{ChainInfos: service.GetChainInfosWithoutEndpoints()}, nil

		case *SuggestChainInfoMsg:
			if err := gate.Require(env.Origin, msg.ChainInfo.ChainID, permission.CapSuggestChain); err != nil {
				return nil, err
			}
			return nil, service.SuggestChainInfo(ctx, env, msg.ChainInfo)

		case *RemoveSuggestedChainInfoMsg:
			if err := gate.Require(env.Origin, msg.ChainID, permission.CapRemoveChain); err != nil {
				return nil, err
			}
			return nil, service.RemoveChainInfo(ctx, msg.ChainID)

		default:
			return nil, fmt.Errorf("unexpected message %T", msg)
		}
	}
}

// Init registers the chains route and binds its handler.
func Init(r *router.Router, service *Service, gate *permission.Gate) error {
	err := r.RegisterRoute(Route,
		GetChainInfosWithCoreTypesKind,
		GetChainInfosWithoutEndpointsKind,
		SuggestChainInfoKind,
		RemoveSuggestedChainInfoKind,
	)
	if err != nil {
		return err
	}
	return r.BindHandler(Route, NewHandler(service, gate))
}
