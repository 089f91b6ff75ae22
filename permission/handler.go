package permission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/wallet-background/router"
)

// NewHandler serves the permission route. Every kind requires
// manage-permissions on all chains.
func NewHandler(gate *Gate, log *slog.Logger) router.HandlerFunc {
	return func(ctx context.Context, env router.Env, msg router.Message) (any, error) {
		if err := gate.Require(env.Origin, AllChains, CapManagePermissions); err != nil {
			return nil, err
		}

		switch msg := msg.(type) {
		case *GetGrantedPermissionsMsg:
			return gate.Grants(msg.Origin), nil
		case *AddPermissionMsg:
			if err := gate.Grant(ctx, msg.Grant); err != nil {
				return nil, err
			}
			log.Info("Permission granted",
				slog.String("by", env.Origin),
				slog.String("origin", msg.Origin),
				slog.String("chainId", msg.ChainID),
				slog.String("capability", string(msg.Capability)))
			return nil, nil
		case *RemovePermissionMsg:
			if err := gate.Revoke(ctx, msg.Grant); err != nil {
				return nil, err
			}
			log.Info("Permission revoked",
				slog.String("by", env.Origin),
				slog.String("origin", msg.Origin),
				slog.String("chainId", msg.ChainID),
				slog.String("capability", string(msg.Capability)))
			return nil, nil
		default:
			return nil, fmt.Errorf("unexpected message %T", msg)
		}
	}
}

// Init registers the permission route and binds its handler.
func Init(r *router.Router, gate *Gate, log *slog.Logger) error {
	if err := r.RegisterRoute(Route, GetGrantedPermissionsKind, AddPermissionKind, RemovePermissionKind); err != nil {
		return err
	}
	return r.BindHandler(Route, NewHandler(gate, log))
}
