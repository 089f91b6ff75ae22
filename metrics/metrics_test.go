package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDispatch("chains", "SuggestChainInfo", "ok", time.Millisecond)
		m.SeedLookup("derived")
		m.ContextCacheEvent("hit")
		m.Interaction("sign", "approved")
	})
}

func TestMetricsHandlerExportsCounters(t *testing.T) {
	m := New("test")
	m.ObserveDispatch("chains", "SuggestChainInfo", "ok", time.Millisecond)
	m.SeedLookup("derived")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_router_dispatch_total{kind="SuggestChainInfo",result="ok",route="chains"} 1`)
	assert.Contains(t, string(body), `test_secretwasm_seed_lookups_total{outcome="derived"} 1`)
}
