package subprocess

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformNameUppercase(t *testing.T) {
	got := TransformName("db-password", NamingOptions{Uppercase: true})
	assert.Equal(t, "DB-PASSWORD", got)
}

func TestTransformNameReplaceDashAndPrefix(t *testing.T) {
	underscore := '_'
	prefix := "APP_"
	opts := NamingOptions{Uppercase: true, ReplaceDash: &underscore, Prefix: &prefix}

	got := TransformName("db-password", opts)
	assert.Equal(t, "APP_DB_PASSWORD", got)
}

func TestTransformNameIdentityByDefault(t *testing.T) {
	got := TransformName("db-password", NamingOptions{})
	assert.Equal(t, "db-password", got)
}

func TestRunWithSecretsRejectsEmptyCommand(t *testing.T) {
	_, err := RunWithSecrets(nil, nil, NamingOptions{})
	assert.Error(t, err, "expected an error for an empty command")
}

func TestRunWithSecretsPropagatesExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	code, err := RunWithSecrets([]string{"sh", "-c", "exit 7"}, nil, NamingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunWithSecretsSignalKilledMapsToOne(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	code, err := RunWithSecrets([]string{"sh", "-c", "kill -9 $$"}, nil, NamingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, code, "a signal-killed child must map to exit code 1, not -1")
}

func TestRunWithSecretsInjectsEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	code, err := RunWithSecrets(
		[]string{"sh", "-c", `test "$DB_PASSWORD" = "hunter2"`},
		map[string]string{"db-password": "hunter2"},
		NamingOptions{Uppercase: true, ReplaceDash: replaceDash('_')},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func replaceDash(r rune) *rune { return &r }
