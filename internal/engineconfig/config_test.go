package engineconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "authy.toml"))
	require.NoError(t, err)
	assert.Equal(t, authMethodPassphrase, cfg.Vault.AuthMethod)
	assert.True(t, cfg.Audit.Enabled, "expected audit enabled by default")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authy.toml")

	cfg := Default()
	cfg.Vault.AuthMethod = authMethodKeyfile
	cfg.Vault.Keyfile = "/home/user/.authy/id.age"
	cfg.Audit.Enabled = false

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, authMethodKeyfile, loaded.Vault.AuthMethod)
	assert.Equal(t, cfg.Vault.Keyfile, loaded.Vault.Keyfile)
	assert.False(t, loaded.Audit.Enabled, "expected audit disabled after round trip")
}

func TestValidRejectsUnknownAuthMethod(t *testing.T) {
	cfg := Default()
	cfg.Vault.AuthMethod = "smartcard"
	assert.False(t, cfg.Valid(), "expected an unknown auth method to be invalid")
}
