package interaction

import (
	"context"
	"fmt"

	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
)

// NewHandler serves the interaction route.
func NewHandler(service *Service, gate *permission.Gate) router.HandlerFunc {
	return func(ctx context.Context, env router.Env, msg router.Message) (any, error) {
		if err := gate.Require(env.Origin, "", permission.CapInteraction); err != nil {
			return nil, err
		}

		switch msg := msg.(type) {
		case *GetPendingInteractionsMsg:
			return service.Pending(), nil
		case *ApproveInteractionMsg:
			return nil, service.Approve(msg.ID)
		case *RejectInteractionMsg:
			return nil, service.Reject(msg.ID)
		default:
			return nil, fmt.Errorf("unexpected message %T", msg)
		}
	}
}

// Init registers the interaction route and binds its handler.
func Init(r *router.Router, service *Service, gate *permission.Gate) error {
	if err := r.RegisterRoute(Route, GetPendingInteractionsKind, ApproveInteractionKind, RejectInteractionKind); err != nil {
		return err
	}
	return r.BindHandler(Route, NewHandler(service, gate))
}
