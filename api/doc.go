/*
Package api defines the wire contract of the wallet's HTTP bridge.

Untrusted contexts (web pages, extensions, CLIs) reach the message router
through a single endpoint:

	POST /api/dispatch
	X-Wallet-Origin: https://app.example
	{"route": "secret-wasm", "type": "getPubkey", "msg": {"chainId": "secret-4"}}

Successful dispatches answer {"result": ...}; failures answer
{"error": {"code", "message", "kind"}} with a status derived from the code.

# Error Codes

Every sentinel a dispatch can fail with has a stable code (see ErrorFrom and
ErrorForCode). *Error unwraps to the sentinel of its code, so a Go caller
using the clients subpackage can keep matching with errors.Is:

	err := client.Dispatch(ctx, "keyring", "UnlockKeyRing", msg, nil)
	if errors.Is(err, cryptoutils.ErrWrongPassword) {
	    ...
	}

# Internal Origin

The wallet's own UI dispatches as InternalOrigin and must present the
configured token in X-Wallet-Internal-Token. The internal origin is granted
every capability at start.
*/
package api
