// Package vaultstore owns the vault's typed in-memory state, its on-disk
// envelope paths, and the load/decrypt/deserialize and serialize/encrypt/
// atomic-replace operations that move between the two.
package vaultstore

import (
	"sort"
	"time"
)

// CurrentVersion is the only vault format version this implementation writes.
const CurrentVersion = 1

// Vault is the single envelope's decrypted contents.
type Vault struct {
	Version    int                  `msgpack:"version"`
	CreatedAt  time.Time            `msgpack:"created_at"`
	ModifiedAt time.Time            `msgpack:"modified_at"`
	Secrets    map[string]SecretEntry `msgpack:"secrets"`
	Policies   map[string]Policy    `msgpack:"policies"`
	Sessions   []SessionRecord      `msgpack:"sessions"`
}

// New returns an empty, freshly timestamped vault.
func New() *Vault {
	now := time.Now().UTC()
	return &Vault{
		Version:    CurrentVersion,
		CreatedAt:  now,
		ModifiedAt: now,
		Secrets:    map[string]SecretEntry{},
		Policies:   map[string]Policy{},
		Sessions:   []SessionRecord{},
	}
}

// Touch refreshes ModifiedAt. Callers invoke it once per mutating operation.
func (v *Vault) Touch() {
	v.ModifiedAt = time.Now().UTC()
}

// SecretNames returns the vault's secret names in deterministic sorted order.
func (v *Vault) SecretNames() []string {
	return sortedKeys(v.Secrets)
}

// PolicyNames returns the vault's policy names in deterministic sorted order.
func (v *Vault) PolicyNames() []string {
	return sortedKeys(v.Policies)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SecretEntry is a single named secret: a sensitive value and non-sensitive
// metadata about it.
type SecretEntry struct {
	Value    string         `msgpack:"value"`
	Metadata SecretMetadata `msgpack:"metadata"`
}

// SecretMetadata describes a SecretEntry without exposing its value.
type SecretMetadata struct {
	CreatedAt   time.Time `msgpack:"created_at"`
	ModifiedAt  time.Time `msgpack:"modified_at"`
	Version     int       `msgpack:"version"`
	Tags        []string  `msgpack:"tags"`
	Description *string   `msgpack:"description"`
}

// NewSecretEntry builds the entry stored on a first `store`.
func NewSecretEntry(value string) SecretEntry {
	now := time.Now().UTC()
	return SecretEntry{
		Value: value,
		Metadata: SecretMetadata{
			CreatedAt:  now,
			ModifiedAt: now,
			Version:    1,
			Tags:       []string{},
		},
	}
}

// BumpVersion increments the entry's version and refreshes ModifiedAt,
// replacing its value in place. Used by both `rotate` and forced overwrite.
func (e *SecretEntry) BumpVersion(newValue string) {
	e.Value = newValue
	e.Metadata.Version++
	e.Metadata.ModifiedAt = time.Now().UTC()
}

// Policy defines which secret names a scope can read.
type Policy struct {
	Name        string    `msgpack:"name"`
	Description *string   `msgpack:"description"`
	Allow       []string  `msgpack:"allow"`
	Deny        []string  `msgpack:"deny"`
	RunOnly     bool      `msgpack:"run_only"`
	CreatedAt   time.Time `msgpack:"created_at"`
	ModifiedAt  time.Time `msgpack:"modified_at"`
}

// NewPolicy builds a policy with fresh timestamps.
func NewPolicy(name string, allow, deny []string, runOnly bool) Policy {
	now := time.Now().UTC()
	return Policy{
		Name:       name,
		Allow:      allow,
		Deny:       deny,
		RunOnly:    runOnly,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// SessionRecord is a persisted session token fingerprint; the token itself
// is never stored.
type SessionRecord struct {
	ID        string    `msgpack:"id"`
	Scope     string    `msgpack:"scope"`
	TokenHMAC []byte    `msgpack:"token_hmac"`
	CreatedAt time.Time `msgpack:"created_at"`
	ExpiresAt time.Time `msgpack:"expires_at"`
	Revoked   bool      `msgpack:"revoked"`
	Label     *string   `msgpack:"label"`
	RunOnly   bool      `msgpack:"run_only"`
}
