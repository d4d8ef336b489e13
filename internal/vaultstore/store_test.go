package vaultstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/cryptoengine"
	"github.com/eric8810/authy/internal/engineerrors"
)

func TestLoadWithoutInitFails(t *testing.T) {
	paths := Paths{Dir: t.TempDir()}
	_, err := Load(paths, PassphraseKey("whatever"))
	require.True(t, engineerrors.Is(err, engineerrors.KindVaultNotInitialized), "expected KindVaultNotInitialized, got %v", err)
}

func TestSaveLoadRoundTripPassphrase(t *testing.T) {
	paths := Paths{Dir: t.TempDir()}
	key := PassphraseKey("testpass")

	v := New()
	v.Secrets["my-secret"] = NewSecretEntry("secret123")

	require.NoError(t, Save(paths, v, key))
	require.True(t, paths.IsInitialized(), "expected vault file to exist after Save")

	got, err := Load(paths, key)
	require.NoError(t, err)
	assert.Equal(t, "secret123", got.Secrets["my-secret"].Value)
}

func TestLoadWrongKeyFails(t *testing.T) {
	paths := Paths{Dir: t.TempDir()}
	require.NoError(t, Save(paths, New(), PassphraseKey("right")))

	_, err := Load(paths, PassphraseKey("wrong"))
	require.True(t, engineerrors.Is(err, engineerrors.KindDecryption), "expected KindDecryption, got %v", err)
}

func TestSaveNeverLeavesPartialEnvelope(t *testing.T) {
	paths := Paths{Dir: t.TempDir()}
	key := PassphraseKey("testpass")

	v := New()
	require.NoError(t, Save(paths, v, key))
	_, err := os.ReadFile(paths.VaultPath())
	require.NoError(t, err)

	v.Secrets["x"] = NewSecretEntry("y")
	require.NoError(t, Save(paths, v, key))

	_, err = os.Stat(paths.BackupVaultPath())
	assert.True(t, os.IsNotExist(err), "expected backup file to be cleaned up after a successful save")
	_, err = os.Stat(paths.TempVaultPath())
	assert.True(t, os.IsNotExist(err), "expected temp file to be cleaned up after a successful save")

	reloaded, err := Load(paths, key)
	require.NoError(t, err)
	_, ok := reloaded.Secrets["x"]
	assert.True(t, ok, "expected second save's secret to be present")
}

func TestRecipientModeRoundTrip(t *testing.T) {
	paths := Paths{Dir: t.TempDir()}

	identity, publicKey, err := cryptoengine.GenerateKeypair()
	require.NoError(t, err)
	key := RecipientKey(identity, publicKey)

	v := New()
	v.Secrets["db-host"] = NewSecretEntry("localhost")
	require.NoError(t, Save(paths, v, key))

	got, err := Load(paths, key)
	require.NoError(t, err)
	assert.Equal(t, "localhost", got.Secrets["db-host"].Value)
}
