/*
Package clients provides the Go client of the wallet daemon's HTTP bridge.

	client := &clients.RouterClient{
	    ServerAddr: "http://127.0.0.1:8080",
	    Origin:     "https://app.example",
	}

	var pubkey []byte
	err := client.Dispatch(ctx, "secret-wasm", "getPubkey",
	    map[string]string{"chainId": "secret-4"}, &pubkey)

Errors returned by the daemon come back as *api.Error and match the
daemon-side sentinels with errors.Is.
*/
package clients
