package auditlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/engineerrors"
)

func strPtr(s string) *string { return &s }

func TestAppendAndVerifyChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	hmacKey := []byte("test-audit-key")

	require.NoError(t, Append(path, "secret_store", strPtr("db-password"), "master(passphrase)", OutcomeSuccess, nil, hmacKey))
	require.NoError(t, Append(path, "secret_get", strPtr("db-password"), "token(abc123)", OutcomeSuccess, nil, hmacKey))
	require.NoError(t, Append(path, "secret_get", strPtr("ssh-key"), "token(abc123)", OutcomeFailure, strPtr("denied by scope"), hmacKey))

	n, err := VerifyChain(path, hmacKey)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestVerifyChainDetectsTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	hmacKey := []byte("test-audit-key")

	require.NoError(t, Append(path, "secret_store", strPtr("a"), "master(passphrase)", OutcomeSuccess, nil, hmacKey))
	require.NoError(t, Append(path, "secret_store", strPtr("b"), "master(passphrase)", OutcomeSuccess, nil, hmacKey))

	entries, err := ReadAll(path)
	require.NoError(t, err)
	entries[0].Outcome = OutcomeFailure
	rewriteLog(t, path, entries)

	_, err = VerifyChain(path, hmacKey)
	require.True(t, engineerrors.Is(err, engineerrors.KindAuditChainBroken), "expected KindAuditChainBroken, got %v", err)
}

func TestVerifyEmptyLogIsClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	n, err := VerifyChain(path, []byte("k"))
	require.NoError(t, err, "VerifyChain failed on missing log")
	assert.Equal(t, 0, n)
}

func TestDebugOptionRendersNoneAndSome(t *testing.T) {
	assert.Equal(t, "None", debugOption(nil))
	assert.Equal(t, `Some("x")`, debugOption(strPtr("x")))
}

func rewriteLog(t *testing.T, path string, entries []Entry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, e := range entries {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		_, err = f.Write(append(data, '\n'))
		require.NoError(t, err)
	}
}
