package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/wallet-background/api"
)

// RouterClient dispatches messages to a wallet daemon over its HTTP bridge.
type RouterClient struct {
	// ServerAddr is the base URL of the daemon
	ServerAddr string

	// Origin is sent as the caller identity
	Origin string

	// InternalToken is sent when Origin is the internal origin
	InternalToken string

	Client *http.Client
}

func (c *RouterClient) httpClient() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

// Dispatch sends msg as route/kind and decodes the result into result, which
// may be nil. Failed dispatches return *api.Error.
func (c *RouterClient) Dispatch(ctx context.Context, route, kind string, msg any, result any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}

	body, err := json.Marshal(api.DispatchRequest{Route: route, Kind: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("could not encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/dispatch"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.OriginHeader, c.Origin)
	if c.InternalToken != "" {
		req.Header.Set(api.InternalTokenHeader, c.InternalToken)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not request dispatch endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read dispatch response: %w", err)
	}

	var parsed api.DispatchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("dispatch endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	if parsed.Error != nil {
		return parsed.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatch endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	if result == nil || len(parsed.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, result); err != nil {
		return fmt.Errorf("could not parse dispatch result: %w", err)
	}
	return nil
}

// Routes lists the daemon's routes and their message kinds.
func (c *RouterClient) Routes(ctx context.Context) (map[string][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/routes"), nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request routes endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("routes endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed api.RoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse routes response: %w", err)
	}
	return parsed.Routes, nil
}

func (c *RouterClient) url(path string) string {
	return strings.TrimRight(c.ServerAddr, "/") + path
}
