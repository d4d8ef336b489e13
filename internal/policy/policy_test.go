package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/vaultstore"
)

func TestDenyOverridesAllow(t *testing.T) {
	p := vaultstore.NewPolicy("limited", []string{"db-*"}, []string{"db-password"}, false)

	allowed, err := CanRead(p, "db-host")
	require.NoError(t, err)
	assert.True(t, allowed, "expected db-host to be allowed")

	denied, err := CanRead(p, "db-password")
	require.NoError(t, err)
	assert.False(t, denied, "expected db-password to be denied despite matching allow")
}

func TestEmptyAllowDeniesEverything(t *testing.T) {
	p := vaultstore.NewPolicy("nothing", nil, nil, false)

	ok, err := CanRead(p, "anything")
	require.NoError(t, err)
	assert.False(t, ok, "expected default-deny with empty allow")
}

func TestEmptyDenyIsNoop(t *testing.T) {
	p := vaultstore.NewPolicy("open", []string{"*"}, nil, false)

	ok, err := CanRead(p, "anything")
	require.NoError(t, err)
	assert.True(t, ok, "expected allow-all with empty deny to allow")
}

func TestFilterPreservesOrder(t *testing.T) {
	p := vaultstore.NewPolicy("deploy", []string{"db-*"}, nil, false)
	names := []string{"ssh-key", "db-host", "db-password", "api-key"}

	got, err := Filter(p, names)
	require.NoError(t, err)
	assert.Equal(t, []string{"db-host", "db-password"}, got)
}

func TestInvalidGlobSurfacesDiagnostic(t *testing.T) {
	p := vaultstore.NewPolicy("broken", []string{"["}, nil, false)

	_, err := CanRead(p, "anything")
	assert.Error(t, err, "expected an error for an invalid glob pattern, not silent ignore")
}
