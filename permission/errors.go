package permission

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is matched by every *DeniedError.
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError reports the exact (origin, chain, capability) triple that was refused.
type DeniedError struct {
	Origin     string
	ChainID    string
	Capability Capability
}

func (e *DeniedError) Error() string {
	if e.ChainID == "" {
		return fmt.Sprintf("%s is not permitted to use %s", e.Origin, e.Capability)
	}
	return fmt.Sprintf("%s is not permitted to use %s on %s", e.Origin, e.Capability, e.ChainID)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}
