// Package cryptoengine implements the vault's envelope encryption: age in
// passphrase or X25519-recipient mode, plus the HKDF sub-key derivation used
// for session and audit HMAC keys.
package cryptoengine

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"golang.org/x/crypto/hkdf"
)

// ErrWrongEnvelopeMode is returned when a passphrase-sealed envelope is
// presented to the recipient-key decryptor, or vice versa.
var ErrWrongEnvelopeMode = errors.New("ciphertext does not match requested key mode")

// EncryptPassphrase seals plaintext under an age scrypt (passphrase) recipient.
func EncryptPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: build passphrase recipient: %w", err)
	}
	return encryptTo(plaintext, recipient)
}

// DecryptPassphrase opens an age envelope sealed with EncryptPassphrase.
// It fails if the envelope was not passphrase-sealed, or the passphrase is wrong.
func DecryptPassphrase(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: build passphrase identity: %w", err)
	}
	return decryptWith(ciphertext, identity)
}

// EncryptRecipient seals plaintext to an X25519 public key (age recipient string).
func EncryptRecipient(plaintext []byte, publicKey string) ([]byte, error) {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: parse recipient: %w", err)
	}
	return encryptTo(plaintext, recipient)
}

// DecryptRecipient opens an age envelope sealed to identityStr's public half.
// It fails on type mismatch (e.g. passphrase envelope) or a non-matching identity.
func DecryptRecipient(ciphertext []byte, identityStr string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: parse identity: %w", err)
	}
	return decryptWith(ciphertext, identity)
}

func encryptTo(plaintext []byte, recipient age.Recipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: open age writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("cryptoengine: write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cryptoengine: finalize envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func decryptWith(ciphertext []byte, identity age.Identity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWrongEnvelopeMode, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: read plaintext: %w", err)
	}
	return plaintext, nil
}

// DeriveKey derives an outLen-byte sub-key from master via HKDF-SHA256, using
// info as the context label (e.g. "session-hmac", "audit-hmac"). HKDF rather
// than a salted password KDF, because master is already high-entropy key
// material (a passphrase string or an identity string), not a low-entropy
// secret needing stretching.
func DeriveKey(master, info []byte, outLen int) ([]byte, error) {
	h := hkdf.New(sha256.New, master, nil, info)
	okm := make([]byte, outLen)
	if _, err := io.ReadFull(h, okm); err != nil {
		return nil, fmt.Errorf("cryptoengine: hkdf expand: %w", err)
	}
	return okm, nil
}

// GenerateKeypair creates a new X25519 identity, returning its identity
// string (the secret half, written to a keyfile) and its public key string
// (the recipient, used when re-encrypting).
func GenerateKeypair() (identity string, publicKey string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("cryptoengine: generate identity: %w", err)
	}
	return id.String(), id.Recipient().String(), nil
}

// PublicKeyFromIdentity recovers the recipient string for an existing identity.
func PublicKeyFromIdentity(identityStr string) (string, error) {
	id, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return "", fmt.Errorf("cryptoengine: parse identity: %w", err)
	}
	return id.Recipient().String(), nil
}

// ClearBytes zeros data in place. Uses subtle.ConstantTimeCompare as a
// compiler barrier so the zeroing is not optimized away.
func ClearBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
	dummy := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, dummy)
}
