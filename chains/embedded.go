package chains

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ruteri/wallet-background/interfaces"
	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var defaultChainsYAML []byte

type chainList struct {
	Chains []interfaces.ChainInfo `yaml:"chains"`
}

// DefaultChains returns the chains shipped with the binary.
func DefaultChains() ([]interfaces.ChainInfo, error) {
	return ParseChains(defaultChainsYAML)
}

// LoadChainsFile reads a chain list in the same YAML layout as the shipped one.
func LoadChainsFile(path string) ([]interfaces.ChainInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains file: %w", err)
	}
	return ParseChains(data)
}

// ParseChains decodes and validates a YAML chain list. Duplicate chain
// identifiers are rejected.
func ParseChains(data []byte) ([]interfaces.ChainInfo, error) {
	var list chainList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse chains: %w", err)
	}

	seen := make(map[string]struct{}, len(list.Chains))
	for i := range list.Chains {
		info := &list.Chains[i]
		if err := info.Validate(); err != nil {
			return nil, fmt.Errorf("chain %q: %w", info.ChainID, err)
		}
		if err := validateBech32Config(info); err != nil {
			return nil, fmt.Errorf("chain %q: %w", info.ChainID, err)
		}

		identifier := interfaces.ChainIdentifierOf(info.ChainID)
		if _, ok := seen[identifier]; ok {
			return nil, fmt.Errorf("duplicate chain %q", info.ChainID)
		}
		seen[identifier] = struct{}{}
	}

	return list.Chains, nil
}
