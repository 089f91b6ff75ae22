package permission

import (
	"errors"
	"fmt"

	"github.com/ruteri/wallet-background/router"
)

// Route is the router route served by this package.
const Route = "permission"

var (
	GetGrantedPermissionsKind = router.NewKind[GetGrantedPermissionsMsg]("GetGrantedPermissions")
	AddPermissionKind         = router.NewKind[AddPermissionMsg]("AddPermission")
	RemovePermissionKind      = router.NewKind[RemovePermissionMsg]("RemovePermission")
)

// GetGrantedPermissionsMsg lists grants, optionally filtered by origin.
type GetGrantedPermissionsMsg struct {
	Origin string `json:"origin,omitempty"`
}

func (m *GetGrantedPermissionsMsg) ValidateBasic() error { return nil }

// AddPermissionMsg grants a capability to an origin.
type AddPermissionMsg struct {
	Grant
}

func (m *AddPermissionMsg) ValidateBasic() error {
	return validateGrant(m.Grant)
}

// RemovePermissionMsg revokes a capability from an origin.
type RemovePermissionMsg struct {
	Grant
}

func (m *RemovePermissionMsg) ValidateBasic() error {
	return validateGrant(m.Grant)
}

func validateGrant(g Grant) error {
	if g.Origin == "" {
		return errors.New("origin is empty")
	}
	if !g.Capability.Valid() {
		return fmt.Errorf("unknown capability %q", g.Capability)
	}
	return nil
}
