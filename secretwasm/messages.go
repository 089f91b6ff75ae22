package secretwasm

import (
	"encoding/json"
	"errors"

	"github.com/ruteri/wallet-background/router"
)

// Route is the router route served by this package.
const Route = "secret-wasm"

// Kinds accepted on the secret-wasm route.
var (
	GetPubkeyKind = router.NewKind[GetPubkeyMsg]("getPubkey")
	EncryptKind   = router.NewKind[EncryptMsg]("encrypt")
	DecryptKind   = router.NewKind[DecryptMsg]("decrypt")
)

var errEmptyChainID = errors.New("chain id is empty")

// GetPubkeyMsg asks for the transaction encryption public key of the caller's account on ChainID.
type GetPubkeyMsg struct {
	ChainID string `json:"chainId"`
}

// ValidateBasic requires a chain id.
func (m *GetPubkeyMsg) ValidateBasic() error {
	if m.ChainID == "" {
		return errEmptyChainID
	}
	return nil
}

// EncryptMsg asks to encrypt a contract message for the contract with ContractCodeHash.
type EncryptMsg struct {
	ChainID          string `json:"chainId"`
	ContractCodeHash string `json:"contractCodeHash"`
	// Msg is any JSON value, encrypted in compact form.
	Msg json.RawMessage `json:"msg"`
}

// ValidateBasic requires a chain id and a non-empty message.
func (m *EncryptMsg) ValidateBasic() error {
	if m.ChainID == "" {
		return errEmptyChainID
	}
	if len(m.Msg) == 0 {
		return errors.New("contract message is empty")
	}
	return nil
}

// DecryptMsg carries base64 encoded ciphertext and nonce.
type DecryptMsg struct {
	ChainID    string `json:"chainId"`
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

// ValidateBasic requires a chain id and, for a non-empty ciphertext, a 32 byte nonce.
func (m *DecryptMsg) ValidateBasic() error {
	if m.ChainID == "" {
		return errEmptyChainID
	}
	if len(m.Ciphertext) > 0 && len(m.Nonce) != NonceSize {
		return errors.New("nonce must be 32 bytes")
	}
	return nil
}
