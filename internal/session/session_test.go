package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/vaultstore"
)

func TestGenerateAndValidate(t *testing.T) {
	hmacKey := []byte("test-hmac-key")

	token, fingerprint, err := Generate(hmacKey)
	require.NoError(t, err)
	require.Equal(t, TokenPrefix, token[:len(TokenPrefix)], "token missing prefix: %q", token)

	id, err := GenerateID()
	require.NoError(t, err)

	sessions := []vaultstore.SessionRecord{
		{ID: id, Scope: "deploy", TokenHMAC: fingerprint, ExpiresAt: time.Now().Add(time.Hour)},
	}

	got, err := Validate(token, sessions, hmacKey, time.Now())
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestValidateWrongKey(t *testing.T) {
	token, fingerprint, err := Generate([]byte("key-a"))
	require.NoError(t, err)
	sessions := []vaultstore.SessionRecord{
		{ID: "abc", TokenHMAC: fingerprint, ExpiresAt: time.Now().Add(time.Hour)},
	}

	_, err = Validate(token, sessions, []byte("key-b"), time.Now())
	require.True(t, engineerrors.Is(err, engineerrors.KindInvalidToken), "expected KindInvalidToken under a different HMAC key, got %v", err)
}

func TestValidateExpired(t *testing.T) {
	hmacKey := []byte("k")
	token, fingerprint, _ := Generate(hmacKey)
	sessions := []vaultstore.SessionRecord{
		{ID: "s1", TokenHMAC: fingerprint, ExpiresAt: time.Now().Add(-time.Minute)},
	}

	_, err := Validate(token, sessions, hmacKey, time.Now())
	require.True(t, engineerrors.Is(err, engineerrors.KindTokenExpired), "expected KindTokenExpired, got %v", err)
}

func TestValidateRevokedNeverMatches(t *testing.T) {
	hmacKey := []byte("k")
	token, fingerprint, _ := Generate(hmacKey)
	sessions := []vaultstore.SessionRecord{
		{ID: "s1", TokenHMAC: fingerprint, Revoked: true, ExpiresAt: time.Now().Add(time.Hour)},
	}

	_, err := Validate(token, sessions, hmacKey, time.Now())
	require.True(t, engineerrors.Is(err, engineerrors.KindInvalidToken), "expected KindInvalidToken for a revoked session, got %v", err)
}

func TestValidateMissingPrefix(t *testing.T) {
	_, err := Validate("not-a-token", nil, []byte("k"), time.Now())
	require.True(t, engineerrors.Is(err, engineerrors.KindInvalidToken), "expected KindInvalidToken for a malformed token, got %v", err)
}

func TestParseTTL(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"1h", time.Hour},
		{"30m", 30 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseTTL(tc.in)
		require.NoError(t, err, "ParseTTL(%q)", tc.in)
		assert.Equal(t, tc.want, got, "ParseTTL(%q)", tc.in)
	}
}

func TestParseTTLInvalid(t *testing.T) {
	_, err := ParseTTL("not-a-duration")
	assert.Error(t, err, "expected an error for an invalid TTL string")
}
