package secretwasm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	txKeyPath       = "/registration/v1beta1/tx-key"
	legacyTxKeyPath = "/reg/tx-key"

	consensusKeySize = 32
)

// ErrConsensusKeyUnavailable is returned when no endpoint of the chain serves the consensus IO key.
var ErrConsensusKeyUnavailable = errors.New("consensus io public key unavailable")

// ConsensusKeySource fetches the network's consensus IO public key.
type ConsensusKeySource interface {
	ConsensusIOPubKey(ctx context.Context, restURL string) ([]byte, error)
}

// RESTConsensusKeySource reads the key from the chain's REST endpoint,
// falling back to the legacy endpoint.
type RESTConsensusKeySource struct {
	client *retryablehttp.Client
	log    *slog.Logger
}

// NewRESTConsensusKeySource creates a source retrying each endpoint retryMax times.
func NewRESTConsensusKeySource(retryMax int, timeout time.Duration, log *slog.Logger) *RESTConsensusKeySource {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = log

	return &RESTConsensusKeySource{client: client, log: log}
}

type txKeyResponse struct {
	Key string `json:"key"`
}

type legacyTxKeyResponse struct {
	Result struct {
		TxKey string `json:"TxKey"`
	} `json:"result"`
}

func (s *RESTConsensusKeySource) ConsensusIOPubKey(ctx context.Context, restURL string) ([]byte, error) {
	base := strings.TrimRight(restURL, "/")

	var res txKeyResponse
	err := s.fetch(ctx, base+txKeyPath, &res)
	if err == nil {
		return decodeConsensusKey(res.Key)
	}
	s.log.Debug("Consensus key endpoint failed, trying legacy endpoint",
		slog.String("rest", restURL),
		"err", err)

	var legacy legacyTxKeyResponse
	if err := s.fetch(ctx, base+legacyTxKeyPath, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsensusKeyUnavailable, err)
	}
	return decodeConsensusKey(legacy.Result.TxKey)
}

func (s *RESTConsensusKeySource) fetch(ctx context.Context, url string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

func decodeConsensusKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsensusKeyUnavailable, err)
	}
	if len(key) != consensusKeySize {
		return nil, fmt.Errorf("%w: invalid key length %d", ErrConsensusKeyUnavailable, len(key))
	}
	return key, nil
}
