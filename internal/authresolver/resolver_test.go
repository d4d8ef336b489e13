package authresolver

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/cryptoengine"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/session"
	"github.com/eric8810/authy/internal/vaultstore"
)

func newTestPaths(t *testing.T) vaultstore.Paths {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AUTHY_HOME", dir)
	paths, err := vaultstore.DiscoverPaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDir())
	return paths
}

func failPrompt(string) (string, error) {
	return "", errors.New("prompt must not be reached in this test")
}

func TestResolvePassphraseEnv(t *testing.T) {
	paths := newTestPaths(t)
	t.Setenv("AUTHY_PASSPHRASE", "correct horse battery staple")

	key, ctx, err := Resolve(paths, true, failPrompt)
	require.NoError(t, err)
	assert.Equal(t, vaultstore.ModePassphrase, key.Mode)
	assert.Equal(t, MethodPassphrase, ctx.Method)
	assert.True(t, ctx.CanWrite)
}

func TestResolveKeyfileEnv(t *testing.T) {
	paths := newTestPaths(t)
	identity, _, err := cryptoengine.GenerateKeypair()
	require.NoError(t, err)
	keyfilePath := paths.Dir + "/id.age"
	require.NoError(t, os.WriteFile(keyfilePath, []byte(identity), 0o600))
	t.Setenv("AUTHY_KEYFILE", keyfilePath)

	key, ctx, err := Resolve(paths, true, failPrompt)
	require.NoError(t, err)
	assert.Equal(t, vaultstore.ModeRecipient, key.Mode)
	assert.Equal(t, MethodKeyfile, ctx.Method)
}

func TestResolveTokenRejectsWrite(t *testing.T) {
	paths := newTestPaths(t)
	t.Setenv("AUTHY_TOKEN", "authy_v1.whatever")

	_, _, err := Resolve(paths, true, failPrompt)
	require.True(t, engineerrors.Is(err, engineerrors.KindTokenReadOnly), "expected KindTokenReadOnly, got %v", err)
}

func TestResolveTokenRequiresKeyfile(t *testing.T) {
	paths := newTestPaths(t)
	t.Setenv("AUTHY_TOKEN", "authy_v1.whatever")

	_, _, err := Resolve(paths, false, failPrompt)
	require.True(t, engineerrors.Is(err, engineerrors.KindAuthFailed), "expected KindAuthFailed without a keyfile, got %v", err)
}

func TestResolveTokenValidatesAgainstVault(t *testing.T) {
	paths := newTestPaths(t)
	identity, publicKey, err := cryptoengine.GenerateKeypair()
	require.NoError(t, err)
	keyfilePath := paths.Dir + "/id.age"
	require.NoError(t, os.WriteFile(keyfilePath, []byte(identity), 0o600))

	key := vaultstore.RecipientKey(identity, publicKey)
	v := vaultstore.New()

	hmacKey, err := cryptoengine.DeriveKey(key.KeyMaterial(), []byte("session-hmac"), 32)
	require.NoError(t, err)
	token, fingerprint, err := session.Generate(hmacKey)
	require.NoError(t, err)
	id, err := session.GenerateID()
	require.NoError(t, err)
	v.Sessions = append(v.Sessions, vaultstore.SessionRecord{
		ID: id, Scope: "deploy", TokenHMAC: fingerprint, ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, vaultstore.Save(paths, v, key))

	t.Setenv("AUTHY_KEYFILE", keyfilePath)
	t.Setenv("AUTHY_TOKEN", token)

	_, ctx, err := Resolve(paths, false, failPrompt)
	require.NoError(t, err)
	assert.Equal(t, MethodSessionToken, ctx.Method)
	assert.Equal(t, id, ctx.SessionID)
	assert.False(t, ctx.CanWrite, "token-derived context must never carry write capability")
}

func TestResolveNonInteractiveWithoutCredentialsFails(t *testing.T) {
	paths := newTestPaths(t)
	t.Setenv("AUTHY_NON_INTERACTIVE", "1")

	_, _, err := Resolve(paths, false, failPrompt)
	require.True(t, engineerrors.Is(err, engineerrors.KindAuthFailed), "expected KindAuthFailed, got %v", err)
}

func TestResolveForInitGeneratesKeyfile(t *testing.T) {
	dir := t.TempDir()
	keyfilePath := dir + "/id.age"

	key, err := ResolveForInit("", keyfilePath, nil)
	require.NoError(t, err)
	assert.Equal(t, vaultstore.ModeRecipient, key.Mode)
	_, err = os.Stat(keyfilePath)
	assert.NoError(t, err, "keyfile not written")
	_, err = os.Stat(keyfilePath + ".pub")
	assert.NoError(t, err, "public keyfile not written")
}

func TestResolveForInitUsesProvidedPassphrase(t *testing.T) {
	key, err := ResolveForInit("my-passphrase", "", nil)
	require.NoError(t, err)
	assert.Equal(t, vaultstore.ModePassphrase, key.Mode)
	assert.Equal(t, "my-passphrase", key.Passphrase)
}
