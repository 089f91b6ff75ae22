package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/wallet-background/api/clients"
	"github.com/ruteri/wallet-background/chains"
	"github.com/ruteri/wallet-background/cmd/flags"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/keyring"
	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/secretwasm"
	"github.com/urfave/cli/v2"
)

var flagPassword = &cli.StringFlag{
	Name:     "password",
	Usage:    "key ring password",
	EnvVars:  []string{"WALLET_PASSWORD"},
	Required: true,
}

var flagMnemonic = &cli.StringFlag{
	Name:  "mnemonic",
	Usage: "BIP-39 mnemonic to import. A new 24 word mnemonic is generated when empty",
}

var flagChainID = &cli.StringFlag{
	Name:     "chain-id",
	Usage:    "chain identifier",
	Required: true,
}

var flagInteractionID = &cli.StringFlag{
	Name:     "id",
	Usage:    "pending interaction id",
	Required: true,
}

var flagGrantOrigin = &cli.StringFlag{
	Name:     "grant-origin",
	Usage:    "origin receiving the grant",
	Required: true,
}

var flagCapability = &cli.StringFlag{
	Name:     "capability",
	Usage:    "capability to grant or revoke",
	Required: true,
}

var flagCodeHash = &cli.StringFlag{
	Name:     "code-hash",
	Usage:    "contract code hash, hex",
	Required: true,
}

var flagWithEndpoints = &cli.BoolFlag{
	Name:  "with-endpoints",
	Usage: "include rpc and rest endpoints",
}

func newClient(cCtx *cli.Context) *clients.RouterClient {
	return &clients.RouterClient{
		ServerAddr:    cCtx.String(flags.ServerAddrFlag.Name),
		Origin:        cCtx.String(flags.OriginFlag.Name),
		InternalToken: cCtx.String(flags.InternalTokenFlag.Name),
	}
}

// dispatchAndPrint sends one message and prints the result as indented JSON.
func dispatchAndPrint(cCtx *cli.Context, route, kind string, msg any) error {
	var result json.RawMessage
	if err := newClient(cCtx).Dispatch(cCtx.Context, route, kind, msg, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Println("ok")
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}

func main() {
	app := &cli.App{
		Name:  "walletctl",
		Usage: "Drive a wallet daemon through its message router",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.OriginFlag,
			flags.InternalTokenFlag,
		},
		DefaultCommand: "routes",
		Commands: []*cli.Command{
			{
				Name:  "routes",
				Usage: "list routes and their message kinds",
				Action: func(cCtx *cli.Context) error {
					routes, err := newClient(cCtx).Routes(cCtx.Context)
					if err != nil {
						return err
					}
					for name, kinds := range routes {
						fmt.Println(name, kinds)
					}
					return nil
				},
			},
			{
				Name:      "dispatch",
				Usage:     "send a raw message",
				ArgsUsage: "<route> <kind> [json payload]",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() < 2 {
						return errors.New("route and kind are required")
					}
					payload := json.RawMessage("{}")
					if cCtx.NArg() > 2 {
						payload = json.RawMessage(cCtx.Args().Get(2))
					}
					return dispatchAndPrint(cCtx, cCtx.Args().Get(0), cCtx.Args().Get(1), payload)
				},
			},
			keyringCommand(),
			chainsCommand(),
			interactionCommand(),
			permissionCommand(),
			secretWasmCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func keyringCommand() *cli.Command {
	return &cli.Command{
		Name:  "keyring",
		Usage: "manage the key ring",
		Subcommands: []*cli.Command{
			{
				Name: "status",
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, keyring.Route, keyring.GetKeyRingStatusKind.Name, keyring.GetKeyRingStatusMsg{})
				},
			},
			{
				Name:  "create",
				Usage: "create the key ring from a mnemonic",
				Flags: []cli.Flag{flagMnemonic, flagPassword},
				Action: func(cCtx *cli.Context) error {
					mnemonic := cCtx.String(flagMnemonic.Name)
					if mnemonic == "" {
						generated, err := keyring.GenerateMnemonic()
						if err != nil {
							return err
						}
						mnemonic = generated
						fmt.Fprintln(os.Stderr, "Generated mnemonic, write it down:")
						fmt.Fprintln(os.Stderr, mnemonic)
					}
					return dispatchAndPrint(cCtx, keyring.Route, keyring.CreateMnemonicKeyKind.Name, keyring.CreateMnemonicKeyMsg{
						Mnemonic: mnemonic,
						Password: cCtx.String(flagPassword.Name),
					})
				},
			},
			{
				Name:  "unlock",
				Flags: []cli.Flag{flagPassword},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, keyring.Route, keyring.UnlockKeyRingKind.Name, keyring.UnlockKeyRingMsg{
						Password: cCtx.String(flagPassword.Name),
					})
				},
			},
			{
				Name: "lock",
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, keyring.Route, keyring.LockKeyRingKind.Name, keyring.LockKeyRingMsg{})
				},
			},
			{
				Name:  "clear",
				Usage: "delete the key ring vault",
				Flags: []cli.Flag{flagPassword},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, keyring.Route, keyring.ClearKeyRingKind.Name, keyring.ClearKeyRingMsg{
						Password: cCtx.String(flagPassword.Name),
					})
				},
			},
			{
				Name:  "backup",
				Usage: "split the mnemonic into Shamir backup shares",
				Flags: []cli.Flag{
					flagPassword,
					&cli.IntFlag{Name: "shares", Value: 3, Usage: "number of shares"},
					&cli.IntFlag{Name: "threshold", Value: 2, Usage: "shares needed to restore"},
				},
				Action: func(cCtx *cli.Context) error {
					var res keyring.BackupSharesResponse
					err := newClient(cCtx).Dispatch(cCtx.Context, keyring.Route, keyring.ExportBackupSharesKind.Name, keyring.ExportBackupSharesMsg{
						Password:  cCtx.String(flagPassword.Name),
						Shares:    cCtx.Int("shares"),
						Threshold: cCtx.Int("threshold"),
					}, &res)
					if err != nil {
						return err
					}
					for _, share := range res.Shares {
						fmt.Println(share)
					}
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "create the key ring from backup shares",
				ArgsUsage: "<share> <share> [share...]",
				Flags:     []cli.Flag{flagPassword},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, keyring.Route, keyring.RestoreFromSharesKind.Name, keyring.RestoreFromSharesMsg{
						Shares:   cCtx.Args().Slice(),
						Password: cCtx.String(flagPassword.Name),
					})
				},
			},
			{
				Name:  "key",
				Usage: "show the account key for a chain",
				Flags: []cli.Flag{flagChainID},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, keyring.Route, keyring.GetKeyKind.Name, keyring.GetKeyMsg{
						ChainID: cCtx.String(flagChainID.Name),
					})
				},
			},
		},
	}
}

func chainsCommand() *cli.Command {
	return &cli.Command{
		Name:  "chains",
		Usage: "inspect and manage chains",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{flagWithEndpoints},
				Action: func(cCtx *cli.Context) error {
					if cCtx.Bool(flagWithEndpoints.Name) {
						return dispatchAndPrint(cCtx, chains.Route, chains.GetChainInfosWithCoreTypesKind.Name, chains.GetChainInfosWithCoreTypesMsg{})
					}
					return dispatchAndPrint(cCtx, chains.Route, chains.GetChainInfosWithoutEndpointsKind.Name, chains.GetChainInfosWithoutEndpointsMsg{})
				},
			},
			{
				Name:      "suggest",
				Usage:     "suggest a chain from a YAML chain list file",
				ArgsUsage: "<chains.yaml>",
				Action: func(cCtx *cli.Context) error {
					infos, err := chains.LoadChainsFile(cCtx.Args().First())
					if err != nil {
						return err
					}
					for _, info := range infos {
						if err := dispatchAndPrint(cCtx, chains.Route, chains.SuggestChainInfoKind.Name, chains.SuggestChainInfoMsg{ChainInfo: info}); err != nil {
							return fmt.Errorf("suggesting %s: %w", info.ChainID, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "remove",
				Flags: []cli.Flag{flagChainID},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, chains.Route, chains.RemoveSuggestedChainInfoKind.Name, chains.RemoveSuggestedChainInfoMsg{
						ChainID: cCtx.String(flagChainID.Name),
					})
				},
			},
		},
	}
}

func interactionCommand() *cli.Command {
	return &cli.Command{
		Name:  "interaction",
		Usage: "decide pending approval requests",
		Subcommands: []*cli.Command{
			{
				Name: "pending",
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, interaction.Route, interaction.GetPendingInteractionsKind.Name, interaction.GetPendingInteractionsMsg{})
				},
			},
			{
				Name:  "approve",
				Flags: []cli.Flag{flagInteractionID},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, interaction.Route, interaction.ApproveInteractionKind.Name, interaction.ApproveInteractionMsg{
						ID: cCtx.String(flagInteractionID.Name),
					})
				},
			},
			{
				Name:  "reject",
				Flags: []cli.Flag{flagInteractionID},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, interaction.Route, interaction.RejectInteractionKind.Name, interaction.RejectInteractionMsg{
						ID: cCtx.String(flagInteractionID.Name),
					})
				},
			},
		},
	}
}

func permissionCommand() *cli.Command {
	grantFlags := []cli.Flag{flagGrantOrigin, flagCapability, &cli.StringFlag{Name: "chain-id", Usage: "chain identifier, * for every chain"}}
	grantOf := func(cCtx *cli.Context) permission.Grant {
		return permission.Grant{
			Origin:     cCtx.String(flagGrantOrigin.Name),
			ChainID:    cCtx.String("chain-id"),
			Capability: permission.Capability(cCtx.String(flagCapability.Name)),
		}
	}

	return &cli.Command{
		Name:  "permission",
		Usage: "manage origin permissions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.StringFlag{Name: "grant-origin", Usage: "only list grants of this origin"}},
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, permission.Route, permission.GetGrantedPermissionsKind.Name, permission.GetGrantedPermissionsMsg{
						Origin: cCtx.String("grant-origin"),
					})
				},
			},
			{
				Name:  "grant",
				Flags: grantFlags,
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, permission.Route, permission.AddPermissionKind.Name, permission.AddPermissionMsg{Grant: grantOf(cCtx)})
				},
			},
			{
				Name:  "revoke",
				Flags: grantFlags,
				Action: func(cCtx *cli.Context) error {
					return dispatchAndPrint(cCtx, permission.Route, permission.RemovePermissionKind.Name, permission.RemovePermissionMsg{Grant: grantOf(cCtx)})
				},
			},
		},
	}
}

func secretWasmCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret-wasm",
		Usage: "secret contract encryption",
		Subcommands: []*cli.Command{
			{
				Name:  "pubkey",
				Usage: "show the transaction encryption public key",
				Flags: []cli.Flag{flagChainID},
				Action: func(cCtx *cli.Context) error {
					var pubKey []byte
					err := newClient(cCtx).Dispatch(cCtx.Context, secretwasm.Route, secretwasm.GetPubkeyKind.Name, secretwasm.GetPubkeyMsg{
						ChainID: cCtx.String(flagChainID.Name),
					}, &pubKey)
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(pubKey))
					return nil
				},
			},
			{
				Name:      "encrypt",
				Usage:     "encrypt a contract message",
				ArgsUsage: "<json message>",
				Flags:     []cli.Flag{flagChainID, flagCodeHash},
				Action: func(cCtx *cli.Context) error {
					var ciphertext []byte
					err := newClient(cCtx).Dispatch(cCtx.Context, secretwasm.Route, secretwasm.EncryptKind.Name, secretwasm.EncryptMsg{
						ChainID:          cCtx.String(flagChainID.Name),
						ContractCodeHash: cCtx.String(flagCodeHash.Name),
						Msg:              json.RawMessage(cCtx.Args().First()),
					}, &ciphertext)
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(ciphertext))
					return nil
				},
			},
		},
	}
}
