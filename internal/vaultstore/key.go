package vaultstore

// KeyMode distinguishes the two VaultKey shapes.
type KeyMode int

const (
	// ModePassphrase seals the envelope under an age scrypt recipient.
	ModePassphrase KeyMode = iota
	// ModeRecipient seals the envelope under an age X25519 recipient.
	ModeRecipient
)

// VaultKey is a tagged union over the two ways to open a vault: a
// passphrase, or an (identity, public key) pair recovered from a keyfile.
type VaultKey struct {
	Mode KeyMode

	// Passphrase is populated when Mode == ModePassphrase.
	Passphrase string

	// Identity and PublicKey are populated when Mode == ModeRecipient.
	// Identity is the decryption capability; PublicKey is the recipient
	// used when re-encrypting on save.
	Identity  string
	PublicKey string
}

// PassphraseKey builds a passphrase-mode VaultKey.
func PassphraseKey(passphrase string) VaultKey {
	return VaultKey{Mode: ModePassphrase, Passphrase: passphrase}
}

// RecipientKey builds a recipient-mode VaultKey from a keyfile's identity
// and its derived public key.
func RecipientKey(identity, publicKey string) VaultKey {
	return VaultKey{Mode: ModeRecipient, Identity: identity, PublicKey: publicKey}
}

// KeyMaterial returns the bytes HKDF derives session/audit sub-keys from:
// the passphrase bytes, or the identity string bytes. Deriving from the
// identity (not the public key) means only holders of the decryption
// capability can validate tokens or extend the audit chain.
func (k VaultKey) KeyMaterial() []byte {
	if k.Mode == ModePassphrase {
		return []byte(k.Passphrase)
	}
	return []byte(k.Identity)
}
