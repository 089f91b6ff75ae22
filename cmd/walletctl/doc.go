// Command walletctl talks to a running walletd over its HTTP bridge.
//
// Every subcommand is one dispatch of a router message. Management commands
// need the internal origin and its token:
//
//	export WALLET_INTERNAL_TOKEN=...
//	walletctl keyring create --password hunter2
//	walletctl interaction pending
//	walletctl permission grant --grant-origin https://app.example --chain-id pulsar-3 --capability secret-wasm
package main
