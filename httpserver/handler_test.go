package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ruteri/wallet-background/api"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/router"
	"github.com/ruteri/wallet-background/secretwasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInternalOrigin = "wallet://internal"
	testInternalToken  = "s3cret-token"
)

type echoMsg struct {
	Text string `json:"text"`
}

func (m *echoMsg) ValidateBasic() error {
	if m.Text == "" {
		return errors.New("text is empty")
	}
	return nil
}

type echoResult struct {
	Text      string `json:"text"`
	Origin    string `json:"origin"`
	Internal  bool   `json:"internal"`
	RequestID string `json:"requestId"`
}

func newTestServer(t *testing.T) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := router.New(log, nil)
	require.NoError(t, r.RegisterRoute("test", router.NewKind[echoMsg]("Echo")))
	require.NoError(t, r.BindHandler("test", func(ctx context.Context, env router.Env, msg router.Message) (any, error) {
		echo := msg.(*echoMsg)
		switch echo.Text {
		case "locked":
			return nil, interfaces.ErrKeyRingLocked
		case "unreachable":
			return nil, fmt.Errorf("%w: dial tcp: connection refused", secretwasm.ErrConsensusKeyUnavailable)
		case "boom":
			return nil, errors.New("disk on fire at /var/lib/wallet")
		}
		return echoResult{Text: echo.Text, Origin: env.Origin, Internal: env.IsInternal, RequestID: env.RequestID}, nil
	}))

	cfg := &api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      log,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}

	srv, err := New(cfg, NewHandler(r, testInternalOrigin, testInternalToken, log), nil)
	require.NoError(t, err)
	return srv
}

func dispatch(t *testing.T, h http.Handler, headers map[string]string, body string) (int, api.DispatchResponse) {
	req := httptest.NewRequest(http.MethodPost, "/api/dispatch", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp api.DispatchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr.Code, resp
}

func TestHandleDispatch(t *testing.T) {
	h := newTestServer(t).getRouter()
	app := map[string]string{api.OriginHeader: "https://app.example"}

	t.Run("success", func(t *testing.T) {
		headers := map[string]string{api.OriginHeader: "https://app.example", api.RequestIDHeader: "req-1"}
		status, resp := dispatch(t, h, headers, `{"route":"test","type":"Echo","msg":{"text":"hi"}}`)
		require.Equal(t, http.StatusOK, status)
		require.Nil(t, resp.Error)

		var res echoResult
		require.NoError(t, json.Unmarshal(resp.Result, &res))
		assert.Equal(t, echoResult{Text: "hi", Origin: "https://app.example", RequestID: "req-1"}, res)
	})

	t.Run("request id from middleware", func(t *testing.T) {
		status, resp := dispatch(t, h, app, `{"route":"test","type":"Echo","msg":{"text":"hi"}}`)
		require.Equal(t, http.StatusOK, status)

		var res echoResult
		require.NoError(t, json.Unmarshal(resp.Result, &res))
		assert.NotEmpty(t, res.RequestID)
	})

	t.Run("missing origin", func(t *testing.T) {
		status, resp := dispatch(t, h, nil, `{"route":"test","type":"Echo","msg":{"text":"hi"}}`)
		assert.Equal(t, http.StatusUnauthorized, status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "missing_origin", resp.Error.Code)
	})

	t.Run("internal origin requires token", func(t *testing.T) {
		status, resp := dispatch(t, h, map[string]string{api.OriginHeader: testInternalOrigin}, `{"route":"test","type":"Echo","msg":{"text":"hi"}}`)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "unauthorized", resp.Error.Code)

		status, _ = dispatch(t, h, map[string]string{api.OriginHeader: testInternalOrigin, api.InternalTokenHeader: "guess"}, `{"route":"test","type":"Echo","msg":{"text":"hi"}}`)
		assert.Equal(t, http.StatusUnauthorized, status)

		status, resp = dispatch(t, h, map[string]string{api.OriginHeader: testInternalOrigin, api.InternalTokenHeader: testInternalToken}, `{"route":"test","type":"Echo","msg":{"text":"hi"}}`)
		require.Equal(t, http.StatusOK, status)
		var res echoResult
		require.NoError(t, json.Unmarshal(resp.Result, &res))
		assert.True(t, res.Internal)
	})

	t.Run("malformed body", func(t *testing.T) {
		status, resp := dispatch(t, h, app, `{"route":"test","type":"Echo","extra":1}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_request", resp.Error.Code)
	})

	t.Run("routing errors", func(t *testing.T) {
		status, resp := dispatch(t, h, app, `{"route":"nope","type":"Echo"}`)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "unknown_route", resp.Error.Code)

		status, resp = dispatch(t, h, app, `{"route":"test","type":"Shout"}`)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "unsupported_message_kind", resp.Error.Code)

		status, resp = dispatch(t, h, app, `{"route":"test","type":"Echo","msg":{"text":""}}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_message", resp.Error.Code)
	})

	t.Run("handler errors", func(t *testing.T) {
		status, resp := dispatch(t, h, app, `{"route":"test","type":"Echo","msg":{"text":"locked"}}`)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "keyring_locked", resp.Error.Code)
		assert.Equal(t, "Echo", resp.Error.Kind)
		assert.ErrorIs(t, resp.Error, interfaces.ErrKeyRingLocked)

		status, resp = dispatch(t, h, app, `{"route":"test","type":"Echo","msg":{"text":"boom"}}`)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal", resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "/var/lib/wallet")

		status, resp = dispatch(t, h, app, `{"route":"test","type":"Echo","msg":{"text":"unreachable"}}`)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "consensus_key_unavailable", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "connection refused")
		assert.ErrorIs(t, resp.Error, secretwasm.ErrConsensusKeyUnavailable)
	})
}

func TestHandleRoutes(t *testing.T) {
	h := newTestServer(t).getRouter()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/routes", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RoutesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, map[string][]string{"test": {"Echo"}}, resp.Routes)
}

func TestReadiness(t *testing.T) {
	srv := newTestServer(t)
	h := srv.getRouter()

	get := func(path string) (int, string) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code, rr.Body.String()
	}

	code, _ := get("/livez")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, code)

	_, body := get("/drain")
	assert.JSONEq(t, `{"status":"draining"}`, body)
	_, body = get("/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	code, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	_, body = get("/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, body)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestNewRequiresMetricsForMetricsAddr(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &api.HTTPServerConfig{MetricsAddr: "127.0.0.1:0", Log: log}

	_, err := New(cfg, NewHandler(router.New(log, nil), testInternalOrigin, "", log), nil)
	assert.Error(t, err)

	_, err = New(cfg, nil, nil)
	assert.Error(t, err)
}
