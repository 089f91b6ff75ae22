package keyring

import (
	"errors"

	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/router"
)

// Route is the router route served by this package.
const Route = "keyring"

// Kinds accepted on the keyring route.
var (
	GetKeyRingStatusKind   = router.NewKind[GetKeyRingStatusMsg]("GetKeyRingStatus")
	CreateMnemonicKeyKind  = router.NewKind[CreateMnemonicKeyMsg]("CreateMnemonicKey")
	UnlockKeyRingKind      = router.NewKind[UnlockKeyRingMsg]("UnlockKeyRing")
	LockKeyRingKind        = router.NewKind[LockKeyRingMsg]("LockKeyRing")
	ClearKeyRingKind       = router.NewKind[ClearKeyRingMsg]("ClearKeyRing")
	GetKeyKind             = router.NewKind[GetKeyMsg]("GetKey")
	ExportBackupSharesKind = router.NewKind[ExportBackupSharesMsg]("ExportBackupShares")
	RestoreFromSharesKind  = router.NewKind[RestoreFromSharesMsg]("RestoreFromShares")
)

var errEmptyPassword = errors.New("password is empty")

// GetKeyRingStatusMsg reports the ring's lifecycle state.
type GetKeyRingStatusMsg struct{}

func (m *GetKeyRingStatusMsg) ValidateBasic() error { return nil }

// CreateMnemonicKeyMsg creates the ring from a BIP-39 mnemonic sealed with Password.
type CreateMnemonicKeyMsg struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
}

func (m *CreateMnemonicKeyMsg) ValidateBasic() error {
	if m.Mnemonic == "" {
		return errors.New("mnemonic is empty")
	}
	if m.Password == "" {
		return errEmptyPassword
	}
	return nil
}

// UnlockKeyRingMsg opens the vault.
type UnlockKeyRingMsg struct {
	Password string `json:"password"`
}

func (m *UnlockKeyRingMsg) ValidateBasic() error {
	if m.Password == "" {
		return errEmptyPassword
	}
	return nil
}

// LockKeyRingMsg drops the in-memory key.
type LockKeyRingMsg struct{}

func (m *LockKeyRingMsg) ValidateBasic() error { return nil }

// ClearKeyRingMsg deletes the vault after checking Password.
type ClearKeyRingMsg struct {
	Password string `json:"password"`
}

func (m *ClearKeyRingMsg) ValidateBasic() error {
	if m.Password == "" {
		return errEmptyPassword
	}
	return nil
}

// GetKeyMsg returns the account key on ChainID.
type GetKeyMsg struct {
	ChainID string `json:"chainId"`
}

func (m *GetKeyMsg) ValidateBasic() error {
	if m.ChainID == "" {
		return errors.New("chain id is empty")
	}
	return nil
}

// ExportBackupSharesMsg asks for Shares backup shares of which Threshold
// restore the key ring.
type ExportBackupSharesMsg struct {
	Password  string `json:"password"`
	Shares    int    `json:"shares"`
	Threshold int    `json:"threshold"`
}

func (m *ExportBackupSharesMsg) ValidateBasic() error {
	if m.Password == "" {
		return errEmptyPassword
	}
	if m.Threshold < 2 || m.Shares < m.Threshold || m.Shares > maxBackupShares {
		return ErrInvalidShareConfig
	}
	return nil
}

// RestoreFromSharesMsg creates the ring from hex encoded backup shares.
type RestoreFromSharesMsg struct {
	Shares   []string `json:"shares"`
	Password string   `json:"password"`
}

func (m *RestoreFromSharesMsg) ValidateBasic() error {
	if len(m.Shares) < 2 {
		return errors.New("at least two shares are required")
	}
	if m.Password == "" {
		return errEmptyPassword
	}
	return nil
}

// BackupSharesResponse carries hex encoded backup shares.
type BackupSharesResponse struct {
	Shares []string `json:"shares"`
}

// StatusResponse is returned by every kind that changes the ring's state.
type StatusResponse struct {
	Status interfaces.KeyRingStatus `json:"status"`
}
