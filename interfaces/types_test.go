package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChainInfo() ChainInfo {
	return ChainInfo{
		ChainID:      "secret-4",
		ChainName:    "Secret Network",
		RPC:          "https://rpc.secret.example",
		REST:         "https://lcd.secret.example",
		BIP44:        BIP44{CoinType: 529},
		Bech32Config: NewBech32ConfigFromPrefix("secret"),
		Currencies: []Currency{
			{CoinDenom: "SCRT", CoinMinimalDenom: "uscrt", CoinDecimals: 6},
		},
		FeeCurrencies: []Currency{
			{CoinDenom: "SCRT", CoinMinimalDenom: "uscrt", CoinDecimals: 6},
		},
		Features: []string{"secretwasm"},
	}
}

func TestParseChainID(t *testing.T) {
	tests := []struct {
		chainID    string
		identifier string
		version    int
	}{
		{"cosmoshub-4", "cosmoshub", 4},
		{"secret-4", "secret", 4},
		{"evmos_9001-2", "evmos_9001", 2},
		{"osmosis", "osmosis", 0},
		{"my-test-chain", "my-test-chain", 0},
		{"a-b-12", "a-b", 12},
	}

	for _, tt := range tests {
		t.Run(tt.chainID, func(t *testing.T) {
			id, err := ParseChainID(tt.chainID)
			require.NoError(t, err)
			assert.Equal(t, tt.identifier, id.Identifier)
			assert.Equal(t, tt.version, id.Version)
		})
	}

	_, err := ParseChainID("")
	assert.Error(t, err)
}

func TestChainInfoValidate(t *testing.T) {
	info := testChainInfo()
	require.NoError(t, info.Validate())

	t.Run("missing rest endpoint", func(t *testing.T) {
		info := testChainInfo()
		info.REST = ""
		assert.ErrorIs(t, info.Validate(), ErrInvalidChainDescriptor)
	})

	t.Run("uppercase bech32 prefix", func(t *testing.T) {
		info := testChainInfo()
		info.Bech32Config.Bech32PrefixAccAddr = "Secret"
		assert.ErrorIs(t, info.Validate(), ErrInvalidChainDescriptor)
	})

	t.Run("no fee currency", func(t *testing.T) {
		info := testChainInfo()
		info.FeeCurrencies = nil
		assert.ErrorIs(t, info.Validate(), ErrInvalidChainDescriptor)
	})

	t.Run("chain id with space", func(t *testing.T) {
		info := testChainInfo()
		info.ChainID = "secret 4"
		assert.ErrorIs(t, info.Validate(), ErrInvalidChainDescriptor)
	})
}

func TestWithoutEndpoints(t *testing.T) {
	info := testChainInfo()
	stripped := info.WithoutEndpoints()

	assert.Equal(t, info.ChainID, stripped.ChainID)
	assert.Equal(t, info.Bech32Config, stripped.Bech32Config)
	assert.True(t, info.HasFeature("secretwasm"))
	assert.False(t, info.HasFeature("ibc-transfer"))
}

func TestNewStorageBackendLocation(t *testing.T) {
	loc, err := NewStorageBackendLocation("redis://:pw@localhost:6379/2?prefix=wallet")
	require.NoError(t, err)
	assert.Equal(t, "redis", loc.Scheme)
	assert.Equal(t, "localhost:6379", loc.Host)
	assert.Equal(t, "/2", loc.Path)
	assert.Equal(t, "wallet", loc.GetParam("prefix"))

	_, err = NewStorageBackendLocation("ipfs://localhost:5001")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)
}
