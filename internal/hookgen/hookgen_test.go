package hookgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBashUsesTokenFile(t *testing.T) {
	snippet, err := Generate(ShellBash, "/home/user/.authy/token")
	require.NoError(t, err)
	assert.Contains(t, snippet, "/home/user/.authy/token")
	assert.Contains(t, snippet, "export AUTHY_TOKEN")
}

func TestGenerateFishUsesSetGx(t *testing.T) {
	snippet, err := Generate(ShellFish, "/home/user/.authy/token")
	require.NoError(t, err)
	assert.Contains(t, snippet, "set -gx AUTHY_TOKEN")
}

func TestGenerateUnsupportedShell(t *testing.T) {
	_, err := Generate(Shell("powershell"), "")
	assert.Error(t, err, "expected an error for an unsupported shell")
}
