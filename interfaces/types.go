package interfaces

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Currency describes one denomination of a chain.
type Currency struct {
	CoinDenom        string `json:"coinDenom" yaml:"coinDenom" validate:"required"`
	CoinMinimalDenom string `json:"coinMinimalDenom" yaml:"coinMinimalDenom" validate:"required"`
	CoinDecimals     uint8  `json:"coinDecimals" yaml:"coinDecimals" validate:"lte=18"`
	CoinGeckoID      string `json:"coinGeckoId,omitempty" yaml:"coinGeckoId,omitempty"`
}

// BIP44 holds the coin type used in the m/44'/coinType'/... derivation path.
type BIP44 struct {
	CoinType uint32 `json:"coinType" yaml:"coinType"`
}

// Bech32Config holds the human readable prefixes of every address kind of a chain.
type Bech32Config struct {
	Bech32PrefixAccAddr  string `json:"bech32PrefixAccAddr" yaml:"bech32PrefixAccAddr" validate:"required,lowercase,max=83"`
	Bech32PrefixAccPub   string `json:"bech32PrefixAccPub" yaml:"bech32PrefixAccPub" validate:"required,lowercase,max=83"`
	Bech32PrefixValAddr  string `json:"bech32PrefixValAddr" yaml:"bech32PrefixValAddr" validate:"required,lowercase,max=83"`
	Bech32PrefixValPub   string `json:"bech32PrefixValPub" yaml:"bech32PrefixValPub" validate:"required,lowercase,max=83"`
	Bech32PrefixConsAddr string `json:"bech32PrefixConsAddr" yaml:"bech32PrefixConsAddr" validate:"required,lowercase,max=83"`
	Bech32PrefixConsPub  string `json:"bech32PrefixConsPub" yaml:"bech32PrefixConsPub" validate:"required,lowercase,max=83"`
}

// NewBech32ConfigFromPrefix derives the conventional cosmos-sdk prefixes from a main prefix.
func NewBech32ConfigFromPrefix(main string) Bech32Config {
	return Bech32Config{
		Bech32PrefixAccAddr:  main,
		Bech32PrefixAccPub:   main + "pub",
		Bech32PrefixValAddr:  main + "valoper",
		Bech32PrefixValPub:   main + "valoperpub",
		Bech32PrefixConsAddr: main + "valcons",
		Bech32PrefixConsPub:  main + "valconspub",
	}
}

// ChainInfo is the static descriptor of one chain known to the wallet.
type ChainInfo struct {
	ChainID       string       `json:"chainId" yaml:"chainId" validate:"required,max=64,printascii"`
	ChainName     string       `json:"chainName" yaml:"chainName" validate:"required,max=64"`
	RPC           string       `json:"rpc" yaml:"rpc" validate:"required,url"`
	REST          string       `json:"rest" yaml:"rest" validate:"required,url"`
	BIP44         BIP44        `json:"bip44" yaml:"bip44"`
	Bech32Config  Bech32Config `json:"bech32Config" yaml:"bech32Config"`
	Currencies    []Currency   `json:"currencies" yaml:"currencies" validate:"required,min=1,dive"`
	FeeCurrencies []Currency   `json:"feeCurrencies" yaml:"feeCurrencies" validate:"required,min=1,dive"`
	StakeCurrency *Currency    `json:"stakeCurrency,omitempty" yaml:"stakeCurrency,omitempty"`
	Features      []string     `json:"features,omitempty" yaml:"features,omitempty" validate:"dive,required"`
	Beta          bool         `json:"beta,omitempty" yaml:"beta,omitempty"`
}

// Validate checks the descriptor's shape. Failures wrap ErrInvalidChainDescriptor.
func (c *ChainInfo) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChainDescriptor, err)
	}

	if _, err := ParseChainID(c.ChainID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChainDescriptor, err)
	}

	if strings.ContainsAny(c.ChainID, " \t") || strings.HasPrefix(c.ChainID, "-") {
		return fmt.Errorf("%w: malformed chain id %q", ErrInvalidChainDescriptor, c.ChainID)
	}

	return nil
}

// HasFeature reports whether the chain declares the named feature.
func (c *ChainInfo) HasFeature(feature string) bool {
	for _, f := range c.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// ChainInfoWithCoreTypes is the full view of a chain, handed to the wallet's own UI.
type ChainInfoWithCoreTypes struct {
	ChainInfo
	Embedded bool `json:"embedded"`
}

// ChainInfoWithoutEndpoints is the reduced view for contexts not entitled to
// see node endpoints.
type ChainInfoWithoutEndpoints struct {
	ChainID       string       `json:"chainId"`
	ChainName     string       `json:"chainName"`
	BIP44         BIP44        `json:"bip44"`
	Bech32Config  Bech32Config `json:"bech32Config"`
	Currencies    []Currency   `json:"currencies"`
	FeeCurrencies []Currency   `json:"feeCurrencies"`
	StakeCurrency *Currency    `json:"stakeCurrency,omitempty"`
	Features      []string     `json:"features,omitempty"`
	Beta          bool         `json:"beta,omitempty"`
}

// WithoutEndpoints strips the node endpoints from the descriptor.
func (c ChainInfo) WithoutEndpoints() ChainInfoWithoutEndpoints {
	return ChainInfoWithoutEndpoints{
		ChainID:       c.ChainID,
		ChainName:     c.ChainName,
		BIP44:         c.BIP44,
		Bech32Config:  c.Bech32Config,
		Currencies:    c.Currencies,
		FeeCurrencies: c.FeeCurrencies,
		StakeCurrency: c.StakeCurrency,
		Features:      c.Features,
		Beta:          c.Beta,
	}
}
