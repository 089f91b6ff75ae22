package secretwasm

import (
	"context"
	"fmt"

	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
)

// NewHandler serves the secret-wasm route. Every kind requires the
// secret-wasm capability on the message's chain; results are raw bytes.
func NewHandler(service *Service, gate *permission.Gate) router.HandlerFunc {
	return func(ctx context.Context, env router.Env, msg router.Message) (any, error) {
		switch msg := msg.(type) {
		case *GetPubkeyMsg:
			if err := gate.Require(env.Origin, msg.ChainID, permission.CapSecretWasm); err != nil {
				return nil, err
			}
			return service.GetPubkey(ctx, env, msg.ChainID)

		case *EncryptMsg:
			if err := gate.Require(env.Origin, msg.ChainID, permission.CapSecretWasm); err != nil {
				return nil, err
			}
			return service.Encrypt(ctx, env, msg.ChainID, msg.ContractCodeHash, msg.Msg)

		case *DecryptMsg:
			if err := gate.Require(env.Origin, msg.ChainID, permission.CapSecretWasm); err != nil {
				return nil, err
			}
			return service.Decrypt(ctx, env, msg.ChainID, msg.Ciphertext, msg.Nonce)

		default:
			return nil, fmt.Errorf("unexpected message %T", msg)
		}
	}
}

// Init registers the secret-wasm route and binds its handler.
func Init(r *router.Router, service *Service, gate *permission.Gate) error {
	if err := r.RegisterRoute(Route, GetPubkeyKind, EncryptKind, DecryptKind); err != nil {
		return err
	}
	return r.BindHandler(Route, NewHandler(service, gate))
}
