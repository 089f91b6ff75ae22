package keyring

import (
	"context"
	"fmt"

	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
)

// NewHandler serves the keyring route. State changes require the keyring
// capability on every chain, GetKey on the requested chain.
func NewHandler(service *Service, gate *permission.Gate) router.HandlerFunc {
	return func(ctx context.Context, env router.Env, msg router.Message) (any, error) {
		if msg, ok := msg.(*GetKeyMsg); ok {
			if err := gate.Require(env.Origin, msg.ChainID, permission.CapKeyRing); err != nil {
				return nil, err
			}
			return service.GetKey(ctx, msg.ChainID)
		}

		if err := gate.Require(env.Origin, permission.AllChains, permission.CapKeyRing); err != nil {
			return nil, err
		}

		var err error
		switch msg := msg.(type) {
		case *ExportBackupSharesMsg:
			shares, err := service.ExportBackupShares(ctx, env, msg.Password, msg.Shares, msg.Threshold)
			if err != nil {
				return nil, err
			}
			return BackupSharesResponse{Shares: shares}, nil
		case *RestoreFromSharesMsg:
			err = service.RestoreFromShares(ctx, msg.Shares, msg.Password)
		case *GetKeyRingStatusMsg:
		case *CreateMnemonicKeyMsg:
			err = service.CreateMnemonicKey(ctx, msg.Mnemonic, msg.Password)
		case *UnlockKeyRingMsg:
			err = service.Unlock(ctx, msg.Password)
		case *LockKeyRingMsg:
			err = service.Lock()
		case *ClearKeyRingMsg:
			err = service.Clear(ctx, msg.Password)
		default:
			return nil, fmt.Errorf("unexpected message %T", msg)
		}
		if err != nil {
			return nil, err
		}

		return StatusResponse{Status: service.Status()}, nil
	}
}

// Init registers the keyring route and binds its handler.
func Init(r *router.Router, service *Service, gate *permission.Gate) error {
	err := r.RegisterRoute(Route,
		GetKeyRingStatusKind,
		CreateMnemonicKeyKind,
		UnlockKeyRingKind,
		LockKeyRingKind,
		ClearKeyRingKind,
		GetKeyKind,
		ExportBackupSharesKind,
		RestoreFromSharesKind,
	)
	if err != nil {
		return err
	}
	return r.BindHandler(Route, NewHandler(service, gate))
}
