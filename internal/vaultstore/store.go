package vaultstore

import (
	"fmt"
	"os"

	"github.com/shamaton/msgpack/v2"

	"github.com/eric8810/authy/internal/cryptoengine"
	"github.com/eric8810/authy/internal/engineerrors"
)

const vaultPermissions = 0o600

// Load reads the envelope at paths.VaultPath(), decrypts it with key, and
// deserializes the compact binary encoding of Vault.
func Load(paths Paths, key VaultKey) (*Vault, error) {
	if !paths.IsInitialized() {
		return nil, engineerrors.New(engineerrors.KindVaultNotInitialized, "vault not initialized. Run `authy init` first.")
	}

	ciphertext, err := os.ReadFile(paths.VaultPath())
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindIO, err, "reading vault envelope")
	}

	plaintext, err := decrypt(ciphertext, key)
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindDecryption, err, "decrypting vault envelope")
	}
	defer cryptoengine.ClearBytes(plaintext)

	var v Vault
	if err := msgpack.Unmarshal(plaintext, &v); err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindSerialization, err, "deserializing vault")
	}
	return &v, nil
}

// Save serializes v, encrypts it under key, and atomically replaces the
// envelope on disk. The rename is the commit point: a partially written
// envelope never displaces the previous one. Mirrors the teacher's
// write-temp, verify-temp, rename-with-backup-rollback choreography.
func Save(paths Paths, v *Vault, key VaultKey) error {
	if err := paths.EnsureDir(); err != nil {
		return engineerrors.Wrap(engineerrors.KindIO, err, "creating vault directory")
	}

	plaintext, err := msgpack.Marshal(v)
	if err != nil {
		return engineerrors.Wrap(engineerrors.KindSerialization, err, "serializing vault")
	}
	defer cryptoengine.ClearBytes(plaintext)

	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return engineerrors.Wrap(engineerrors.KindEncryption, err, "encrypting vault")
	}

	tempPath := paths.TempVaultPath()
	if err := writeTemp(tempPath, ciphertext); err != nil {
		return err
	}
	defer os.Remove(tempPath) // best-effort; no-op once renamed into place

	if err := verifyTemp(tempPath, key); err != nil {
		return err
	}

	backupPath := paths.BackupVaultPath()
	vaultExisted := paths.IsInitialized()
	if vaultExisted {
		if err := os.Rename(paths.VaultPath(), backupPath); err != nil {
			return engineerrors.Wrap(engineerrors.KindIO, err, "staging backup before commit")
		}
	}

	if err := os.Rename(tempPath, paths.VaultPath()); err != nil {
		if vaultExisted {
			if rollbackErr := os.Rename(backupPath, paths.VaultPath()); rollbackErr != nil {
				return engineerrors.Wrap(engineerrors.KindIO, rollbackErr,
					fmt.Sprintf("commit failed (%v) and rollback also failed", err))
			}
		}
		return engineerrors.Wrap(engineerrors.KindIO, err, "committing vault envelope")
	}

	if vaultExisted {
		os.Remove(backupPath) // best-effort cleanup of the now-unneeded backup
	}
	return nil
}

func writeTemp(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, vaultPermissions)
	if err != nil {
		return engineerrors.Wrap(engineerrors.KindIO, err, "opening temp envelope")
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return engineerrors.Wrap(engineerrors.KindIO, err, "writing temp envelope")
	}
	if err := f.Sync(); err != nil {
		return engineerrors.Wrap(engineerrors.KindIO, err, "syncing temp envelope")
	}
	return nil
}

// verifyTemp re-decrypts the just-written temp file before it is allowed to
// become the vault of record, so a corrupt write is caught before commit
// rather than on the next load.
func verifyTemp(path string, key VaultKey) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return engineerrors.Wrap(engineerrors.KindIO, err, "reading temp envelope for verification")
	}
	plaintext, err := decrypt(data, key)
	if err != nil {
		return engineerrors.Wrap(engineerrors.KindEncryption, err, "verifying temp envelope decrypts")
	}
	cryptoengine.ClearBytes(plaintext)
	return nil
}

func encrypt(plaintext []byte, key VaultKey) ([]byte, error) {
	if key.Mode == ModePassphrase {
		return cryptoengine.EncryptPassphrase(plaintext, key.Passphrase)
	}
	return cryptoengine.EncryptRecipient(plaintext, key.PublicKey)
}

func decrypt(ciphertext []byte, key VaultKey) ([]byte, error) {
	if key.Mode == ModePassphrase {
		return cryptoengine.DecryptPassphrase(ciphertext, key.Passphrase)
	}
	return cryptoengine.DecryptRecipient(ciphertext, key.Identity)
}
