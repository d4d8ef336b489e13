package engineerrors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindIO, 1},
		{KindAuthFailed, 2},
		{KindSecretNotFound, 3},
		{KindAccessDenied, 4},
		{KindTokenReadOnly, 4},
		{KindRunOnly, 4},
		{KindSecretAlreadyExists, 5},
		{KindInvalidToken, 6},
		{KindVaultNotInitialized, 7},
	}
	for _, tc := range cases {
		got := New(tc.kind, "").ExitCode()
		assert.Equal(t, tc.want, got, "%s exit code", tc.kind)
	}
}

func TestAccessDeniedMessage(t *testing.T) {
	err := AccessDenied("ssh-key", "deploy")
	want := `access denied: secret "ssh-key" not allowed by scope "deploy"`
	assert.Equal(t, want, err.Error())
}

func TestIsAndUnwrap(t *testing.T) {
	wrapped := Wrap(KindIO, io.ErrUnexpectedEOF, "reading vault")
	assert.True(t, Is(wrapped, KindIO))
	assert.True(t, errors.Is(wrapped, io.ErrUnexpectedEOF), "errors.Is should see through to the wrapped cause")
	assert.False(t, Is(wrapped, KindDecryption))
}
