package keyring

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/router"
	"github.com/tyler-smith/go-bip39"
)

const (
	backupChecksumSize = 4
	maxBackupShares    = 255
)

var (
	ErrInvalidShares      = errors.New("backup shares do not reconstruct a mnemonic")
	ErrInvalidShareConfig = errors.New("invalid backup share configuration")
)

// BackupRequestData is the payload shown to the user before shares are exported.
type BackupRequestData struct {
	Shares    int `json:"shares"`
	Threshold int `json:"threshold"`
}

// ExportBackupShares splits the mnemonic into shares of which any threshold
// reconstruct it. The vault is opened with password and the user must approve
// the export. The ring does not need to be unlocked.
func (s *Service) ExportBackupShares(ctx context.Context, env router.Env, password string, shares, threshold int) ([]string, error) {
	if threshold < 2 || shares < threshold || shares > maxBackupShares {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidShareConfig, threshold, shares)
	}

	s.mu.Lock()
	mnemonic, err := s.openVaultLocked(ctx, password)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(BackupRequestData{Shares: shares, Threshold: threshold})
	if err != nil {
		return nil, err
	}

	err = s.approver.RequestApproval(ctx, interaction.Request{
		Type:   interaction.TypeExportBackup,
		Origin: env.Origin,
		Data:   data,
	})
	if err != nil {
		return nil, err
	}

	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	secret := withChecksum(entropy)
	defer wipeBytes(secret)
	defer wipeBytes(entropy)

	parts, err := shamir.Split(secret, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split mnemonic: %w", err)
	}

	encoded := make([]string, len(parts))
	for i, part := range parts {
		encoded[i] = hex.EncodeToString(part)
	}

	s.log.Warn("Exported key ring backup shares",
		slog.String("origin", env.Origin),
		slog.Int("shares", shares),
		slog.Int("threshold", threshold))
	return encoded, nil
}

// RestoreFromShares rebuilds the mnemonic from backup shares and creates the
// key ring from it, sealed with password.
func (s *Service) RestoreFromShares(ctx context.Context, shares []string, password string) error {
	parts := make([][]byte, 0, len(shares))
	for i, share := range shares {
		part, err := hex.DecodeString(share)
		if err != nil {
			return fmt.Errorf("%w: share %d is not hex", ErrInvalidShares, i)
		}
		parts = append(parts, part)
	}

	secret, err := shamir.Combine(parts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShares, err)
	}
	defer wipeBytes(secret)

	if len(secret) <= backupChecksumSize {
		return ErrInvalidShares
	}
	entropy := secret[:len(secret)-backupChecksumSize]
	if !bytes.Equal(withChecksum(entropy), secret) {
		return ErrInvalidShares
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShares, err)
	}

	if err := s.CreateMnemonicKey(ctx, mnemonic, password); err != nil {
		return err
	}

	s.log.Info("Key ring restored from backup shares", slog.Int("shares", len(shares)))
	return nil
}

func withChecksum(entropy []byte) []byte {
	sum := sha256.Sum256(entropy)
	out := make([]byte, 0, len(entropy)+backupChecksumSize)
	out = append(out, entropy...)
	return append(out, sum[:backupChecksumSize]...)
}

func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
