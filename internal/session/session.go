// Package session implements opaque session tokens: generation, keyed
// fingerprinting, and constant-time validation against a vault's session
// records.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/vaultstore"
)

// TokenPrefix is the fixed ASCII prefix every issued token carries.
const TokenPrefix = "authy_v1."

// tokenBytes is the number of random bytes encoded into a token.
const tokenBytes = 32

// Generate draws fresh token material, forms the token string, and computes
// its keyed fingerprint under hmacKey. The token is returned to the caller
// exactly once; only the fingerprint is meant to be persisted.
func Generate(hmacKey []byte) (token string, fingerprint []byte, err error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, engineerrors.Wrap(engineerrors.KindOther, err, "generating session token")
	}
	token = TokenPrefix + base64.RawURLEncoding.EncodeToString(raw)
	fingerprint = fingerprintOf(token, hmacKey)
	return token, fingerprint, nil
}

func fingerprintOf(token string, hmacKey []byte) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write([]byte(token))
	return mac.Sum(nil)
}

// GenerateID returns a new session identifier: 8 random bytes, hex-encoded.
func GenerateID() (string, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "", engineerrors.Wrap(engineerrors.KindOther, err, "generating session id")
	}
	return hex.EncodeToString(raw), nil
}

// Validate checks token against sessions under hmacKey.
//
//  1. Reject anything not carrying TokenPrefix.
//  2. Compute the candidate fingerprint.
//  3. Scan records (skipping revoked ones) using a constant-time compare.
//  4. On match, enforce expiry.
//  5. No match at all: InvalidToken.
func Validate(token string, sessions []vaultstore.SessionRecord, hmacKey []byte, now time.Time) (*vaultstore.SessionRecord, error) {
	if !strings.HasPrefix(token, TokenPrefix) {
		return nil, engineerrors.New(engineerrors.KindInvalidToken, "invalid session token")
	}

	candidate := fingerprintOf(token, hmacKey)

	for i := range sessions {
		rec := &sessions[i]
		if rec.Revoked {
			continue
		}
		if subtle.ConstantTimeCompare(candidate, rec.TokenHMAC) != 1 {
			continue
		}
		if now.After(rec.ExpiresAt) {
			return nil, engineerrors.New(engineerrors.KindTokenExpired, "session token expired")
		}
		return rec, nil
	}
	return nil, engineerrors.New(engineerrors.KindInvalidToken, "invalid session token")
}

// ParseTTL accepts human duration strings including a day suffix
// (e.g. "1h", "30m", "7d") that time.ParseDuration alone does not understand.
func ParseTTL(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, engineerrors.Wrap(engineerrors.KindOther, err, fmt.Sprintf("invalid TTL %q", s))
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, engineerrors.Wrap(engineerrors.KindOther, err, fmt.Sprintf("invalid TTL %q", s))
	}
	return d, nil
}
