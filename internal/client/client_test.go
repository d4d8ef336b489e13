package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/vaultstore"
)

func newTestClient(t *testing.T) (*Client, vaultstore.Paths) {
	t.Helper()
	t.Setenv("AUTHY_HOME", t.TempDir())
	paths, err := vaultstore.DiscoverPaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDir())
	key := vaultstore.PassphraseKey("test-passphrase")
	c, err := New(paths, key, "test(passphrase)")
	require.NoError(t, err)
	require.NoError(t, c.InitVault())
	return c, paths
}

func TestInitVaultTwiceFails(t *testing.T) {
	c, _ := newTestClient(t)
	err := c.InitVault()
	require.True(t, engineerrors.Is(err, engineerrors.KindVaultAlreadyExists), "expected KindVaultAlreadyExists, got %v", err)
}

func TestStoreGetRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)

	require.NoError(t, c.Store("db-password", "hunter2", false))

	value, ok, err := c.Get("db-password")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", value)
}

func TestStoreWithoutForceRejectsExisting(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Store("db-password", "hunter2", false))
	err := c.Store("db-password", "new-value", false)
	require.True(t, engineerrors.Is(err, engineerrors.KindSecretAlreadyExists), "expected KindSecretAlreadyExists, got %v", err)
}

func TestRotateIncrementsVersion(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Store("api-key", "v1-value", false))

	version, err := c.Rotate("api-key", "v2-value")
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	value, _, err := c.Get("api-key")
	require.NoError(t, err)
	assert.Equal(t, "v2-value", value)
}

func TestRotateMissingSecretFails(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Rotate("missing", "x")
	require.True(t, engineerrors.Is(err, engineerrors.KindSecretNotFound), "expected KindSecretNotFound, got %v", err)
}

func TestRemoveReportsExistence(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Store("temp", "x", false))

	existed, err := c.Remove("temp")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = c.Remove("temp")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestListFiltersByPolicy(t *testing.T) {
	c, _ := newTestClient(t)
	for _, name := range []string{"db-host", "db-password", "ssh-key"} {
		require.NoError(t, c.Store(name, "x", false))
	}
	require.NoError(t, c.CreatePolicy("deploy", []string{"db-*"}, nil, nil, false))

	names, err := c.List("deploy")
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestCreateSessionAndValidateWithinVault(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.CreatePolicy("deploy", []string{"*"}, nil, nil, false))

	label := "ci-runner"
	token, id, _, err := c.CreateSession("deploy", time.Hour, &label, false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, id)

	sessions, err := c.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
}

func TestRevokeSessionAndRevokeAll(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.CreatePolicy("deploy", []string{"*"}, nil, nil, false))
	_, id1, _, err := c.CreateSession("deploy", time.Hour, nil, false)
	require.NoError(t, err)
	_, _, _, err = c.CreateSession("deploy", time.Hour, nil, false)
	require.NoError(t, err)

	require.NoError(t, c.RevokeSession(id1))

	count, err := c.RevokeAllSessions()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the other session was already revoked")
}

func TestRekeyInvalidatesOldCredential(t *testing.T) {
	c, paths := newTestClient(t)
	require.NoError(t, c.Store("db-password", "hunter2", false))

	newKey := vaultstore.PassphraseKey("new-passphrase")
	require.NoError(t, c.Rekey(newKey, "master(passphrase)"))

	_, err := vaultstore.Load(paths, vaultstore.PassphraseKey("test-passphrase"))
	require.True(t, engineerrors.Is(err, engineerrors.KindDecryption), "expected old passphrase to fail with KindDecryption, got %v", err)

	v, err := vaultstore.Load(paths, newKey)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v.Secrets["db-password"].Value, "rekeyed vault lost its secrets")
}

func TestVerifyAuditChainAfterOperations(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Store("a", "1", false))
	_, _, err := c.Get("a")
	require.NoError(t, err)

	n, err := c.VerifyAuditChain()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3, "want at least 3 (init, store, get)")
}
