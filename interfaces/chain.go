package interfaces

import (
	"errors"
	"regexp"
	"strconv"
)

// ChainIdentifier is a chain id split into its network identifier and revision.
// "cosmoshub-4" parses to {Identifier: "cosmoshub", Version: 4}; ids without a
// numeric revision suffix keep the whole id as identifier with version 0.
type ChainIdentifier struct {
	Identifier string
	Version    int
}

var chainVersionFormat = regexp.MustCompile(`^(.+)-([\d]+)$`)

// ParseChainID splits a chain id into identifier and revision.
func ParseChainID(chainID string) (ChainIdentifier, error) {
	if chainID == "" {
		return ChainIdentifier{}, errors.New("empty chain id")
	}

	m := chainVersionFormat.FindStringSubmatch(chainID)
	if m == nil {
		return ChainIdentifier{Identifier: chainID}, nil
	}

	version, err := strconv.Atoi(m[2])
	if err != nil {
		// revision overflows int, treat the id as unversioned
		return ChainIdentifier{Identifier: chainID}, nil
	}

	return ChainIdentifier{Identifier: m[1], Version: version}, nil
}

// ChainIdentifierOf returns the identifier part of a chain id, or the id itself if it cannot be parsed.
func ChainIdentifierOf(chainID string) string {
	id, err := ParseChainID(chainID)
	if err != nil {
		return chainID
	}
	return id.Identifier
}

// ChainRemovedFunc is called synchronously after a chain has been removed.
type ChainRemovedFunc func(chainID string)

// ChainRegistry resolves chain descriptors.
type ChainRegistry interface {
	// GetChainInfo returns ErrUnknownChain when the id does not resolve.
	GetChainInfo(chainID string) (ChainInfo, error)

	// OnChainRemoved registers a callback fired on every chain removal.
	OnChainRemoved(fn ChainRemovedFunc) error
}
