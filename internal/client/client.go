// Package client is the programmatic facade over the vault: every method
// loads, mutates, saves, and audits in one call, mirroring the shape every
// CLI handler follows.
package client

import (
	"fmt"
	"time"

	"github.com/eric8810/authy/internal/auditlog"
	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/cryptoengine"
	"github.com/eric8810/authy/internal/engineconfig"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/policy"
	"github.com/eric8810/authy/internal/session"
	"github.com/eric8810/authy/internal/vaultstore"
)

// Client is a fully authenticated handle onto one vault.
type Client struct {
	paths    vaultstore.Paths
	key      vaultstore.VaultKey
	auditKey []byte
	actor    string
}

// New builds a Client from an already-resolved key and actor label.
func New(paths vaultstore.Paths, key vaultstore.VaultKey, actor string) (*Client, error) {
	auditKey, err := auditlog.DeriveKey(key.KeyMaterial())
	if err != nil {
		return nil, err
	}
	return &Client{paths: paths, key: key, auditKey: auditKey, actor: actor}, nil
}

// FromContext builds a Client from an authresolver.Context, rendering its
// ActorName as the audit actor.
func FromContext(paths vaultstore.Paths, key vaultstore.VaultKey, ctx authresolver.Context) (*Client, error) {
	return New(paths, key, ctx.ActorName())
}

// IsInitialized reports whether a vault already exists at paths.
func IsInitialized(paths vaultstore.Paths) bool {
	return paths.IsInitialized()
}

// InitVault creates a new, empty vault and its default configuration. The
// vault must not already exist.
func (c *Client) InitVault() error {
	if c.paths.IsInitialized() {
		return engineerrors.New(engineerrors.KindVaultAlreadyExists, c.paths.VaultPath())
	}
	v := vaultstore.New()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return err
	}
	if err := engineconfig.Default().Save(c.paths.ConfigPath()); err != nil {
		return err
	}
	c.audit("init", nil, auditlog.OutcomeSuccess, nil)
	return nil
}

// Get retrieves a secret's value; ok is false if it does not exist.
func (c *Client) Get(name string) (value string, ok bool, err error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return "", false, err
	}

	entry, found := v.Secrets[name]
	outcome := auditlog.OutcomeNotFound
	if found {
		outcome = auditlog.OutcomeSuccess
	}
	c.audit("get", &name, outcome, nil)

	if !found {
		return "", false, nil
	}
	return entry.Value, true, nil
}

// Describe returns a secret's metadata without its value, for surfaces
// like the dashboard that list secrets without exposing them.
func (c *Client) Describe(name string) (vaultstore.SecretMetadata, bool, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return vaultstore.SecretMetadata{}, false, err
	}
	entry, found := v.Secrets[name]
	if !found {
		return vaultstore.SecretMetadata{}, false, nil
	}
	return entry.Metadata, true, nil
}

// GetScoped retrieves a secret under an optional policy scope, honoring
// run-only at both token level (tokenRunOnly) and policy level. An empty
// scope skips policy enforcement entirely (full master access).
func (c *Client) GetScoped(name, scope string, tokenRunOnly bool) (value string, ok bool, err error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return "", false, err
	}

	var detail *string
	if scope != "" {
		d := "scope=" + scope
		detail = &d

		p, found := v.Policies[scope]
		if !found {
			return "", false, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
		}
		if tokenRunOnly || p.RunOnly {
			return "", false, engineerrors.New(engineerrors.KindRunOnly, "reading a secret value is forbidden under a run-only scope")
		}
		allowed, err := policy.CanRead(p, name)
		if err != nil {
			return "", false, err
		}
		if !allowed {
			c.audit("get", &name, auditlog.OutcomeDenied, detail)
			return "", false, engineerrors.AccessDenied(name, scope)
		}
	} else if tokenRunOnly {
		return "", false, engineerrors.New(engineerrors.KindRunOnly, "reading a secret value is forbidden under a run-only token")
	}

	entry, found := v.Secrets[name]
	outcome := auditlog.OutcomeNotFound
	if found {
		outcome = auditlog.OutcomeSuccess
	}
	c.audit("get", &name, outcome, detail)

	if !found {
		return "", false, nil
	}
	return entry.Value, true, nil
}

// GetOrErr retrieves a secret, returning KindSecretNotFound if absent.
func (c *Client) GetOrErr(name string) (string, error) {
	value, ok, err := c.Get(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", engineerrors.New(engineerrors.KindSecretNotFound, name)
	}
	return value, nil
}

// Store writes a secret with no tags or description. If force is false
// and the name already exists, returns KindSecretAlreadyExists.
func (c *Client) Store(name, value string, force bool) error {
	return c.StoreWithMetadata(name, value, force, nil, nil)
}

// StoreWithMetadata is Store plus tags and an optional description,
// attached on first store; on a forced overwrite they replace whatever
// was there before.
func (c *Client) StoreWithMetadata(name, value string, force bool, tags []string, description *string) error {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return err
	}

	existing, exists := v.Secrets[name]
	if exists && !force {
		detail := "already exists"
		c.audit("store", &name, auditlog.OutcomeDenied, &detail)
		return engineerrors.New(engineerrors.KindSecretAlreadyExists, name)
	}

	if exists {
		existing.BumpVersion(value)
		existing.Metadata.Tags = tags
		existing.Metadata.Description = description
		v.Secrets[name] = existing
	} else {
		entry := vaultstore.NewSecretEntry(value)
		entry.Metadata.Tags = tags
		entry.Metadata.Description = description
		v.Secrets[name] = entry
	}
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return err
	}

	op := "store"
	if exists {
		op = "update"
	}
	c.audit(op, &name, auditlog.OutcomeSuccess, nil)
	return nil
}

// Remove deletes a secret. existed is false if it was not present.
func (c *Client) Remove(name string) (existed bool, err error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return false, err
	}

	if _, found := v.Secrets[name]; !found {
		c.audit("remove", &name, auditlog.OutcomeNotFound, nil)
		return false, nil
	}

	delete(v.Secrets, name)
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return false, err
	}
	c.audit("remove", &name, auditlog.OutcomeSuccess, nil)
	return true, nil
}

// Rotate replaces a secret's value in place, bumping its version. The
// secret must already exist.
func (c *Client) Rotate(name, newValue string) (version int, err error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return 0, err
	}

	entry, found := v.Secrets[name]
	if !found {
		return 0, engineerrors.New(engineerrors.KindSecretNotFound, name)
	}

	entry.BumpVersion(newValue)
	v.Secrets[name] = entry
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return 0, err
	}

	detail := fmt.Sprintf("v%d", entry.Metadata.Version)
	c.audit("rotate", &name, auditlog.OutcomeSuccess, &detail)
	return entry.Metadata.Version, nil
}

// List returns secret names, filtered through a policy scope when scope is
// non-empty.
func (c *Client) List(scope string) ([]string, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return nil, err
	}

	var names []string
	if scope != "" {
		p, found := v.Policies[scope]
		if !found {
			return nil, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
		}
		filtered, err := policy.Filter(p, v.SecretNames())
		if err != nil {
			return nil, err
		}
		names = filtered
	} else {
		names = v.SecretNames()
	}

	c.audit("list", nil, auditlog.OutcomeSuccess, nil)
	return names, nil
}

// ExportEntry is one secret's full exported record: value plus metadata,
// named the way the export command's naming transform leaves it.
type ExportEntry struct {
	Name     string
	Value    string
	Version  int
	Created  time.Time
	Modified time.Time
}

// Export returns every secret a scope can read (or, with an empty scope,
// every secret in the vault) as full records including values. Run-only
// enforcement is the caller's responsibility, mirroring ScopeRunOnly.
func (c *Client) Export(scope string) ([]ExportEntry, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return nil, err
	}

	var names []string
	if scope != "" {
		p, found := v.Policies[scope]
		if !found {
			return nil, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
		}
		filtered, err := policy.Filter(p, v.SecretNames())
		if err != nil {
			return nil, err
		}
		names = filtered
	} else {
		names = v.SecretNames()
	}

	entries := make([]ExportEntry, 0, len(names))
	for _, name := range names {
		e := v.Secrets[name]
		entries = append(entries, ExportEntry{
			Name:     name,
			Value:    e.Value,
			Version:  e.Metadata.Version,
			Created:  e.Metadata.CreatedAt,
			Modified: e.Metadata.ModifiedAt,
		})
	}

	scopeDetail := scope
	if scopeDetail == "" {
		scopeDetail = "all"
	}
	detail := "scope=" + scopeDetail
	c.audit("export", nil, auditlog.OutcomeSuccess, &detail)
	return entries, nil
}

// ScopeRunOnly reports whether a policy scope carries the run-only flag,
// for commands that must refuse to expose values (e.g. `env`) while still
// allowing subprocess injection (`run`).
func (c *Client) ScopeRunOnly(scope string) (bool, error) {
	if scope == "" {
		return false, nil
	}
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return false, err
	}
	p, found := v.Policies[scope]
	if !found {
		return false, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
	}
	return p.RunOnly, nil
}

// ResolveScopedSecrets loads every secret name/value pair a scope allows,
// for the subprocess injector and `env` command. An empty scope resolves to
// every secret in the vault.
func (c *Client) ResolveScopedSecrets(scope string) (map[string]string, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return nil, err
	}

	var names []string
	if scope == "" {
		names = v.SecretNames()
	} else {
		p, found := v.Policies[scope]
		if !found {
			return nil, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
		}
		filtered, err := policy.Filter(p, v.SecretNames())
		if err != nil {
			return nil, err
		}
		names = filtered
	}

	secrets := make(map[string]string, len(names))
	for _, name := range names {
		secrets[name] = v.Secrets[name].Value
	}
	c.audit("resolve_scoped", nil, auditlog.OutcomeSuccess, nil)
	return secrets, nil
}

// TestPolicy reports whether scope permits reading secretName.
func (c *Client) TestPolicy(scope, secretName string) (bool, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return false, err
	}

	p, found := v.Policies[scope]
	if !found {
		return false, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
	}

	allowed, err := policy.CanRead(p, secretName)
	if err != nil {
		return false, err
	}

	outcome := auditlog.OutcomeDenied
	if allowed {
		outcome = auditlog.OutcomeAllowed
	}
	detail := "scope=" + scope
	c.audit("policy.test", &secretName, outcome, &detail)
	return allowed, nil
}

// CreatePolicy adds a new named policy. The name must not already exist.
func (c *Client) CreatePolicy(name string, allow, deny []string, description *string, runOnly bool) error {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return err
	}

	if _, exists := v.Policies[name]; exists {
		return engineerrors.New(engineerrors.KindPolicyAlreadyExists, name)
	}

	p := vaultstore.NewPolicy(name, allow, deny, runOnly)
	p.Description = description
	v.Policies[name] = p
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return err
	}

	detail := "policy=" + name
	c.audit("policy.create", nil, auditlog.OutcomeSuccess, &detail)
	return nil
}

// GetPolicy returns a copy of a named policy.
func (c *Client) GetPolicy(name string) (vaultstore.Policy, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return vaultstore.Policy{}, err
	}
	p, found := v.Policies[name]
	if !found {
		return vaultstore.Policy{}, engineerrors.New(engineerrors.KindPolicyNotFound, name)
	}
	return p, nil
}

// ListPolicies returns every policy, keyed by name.
func (c *Client) ListPolicies() (map[string]vaultstore.Policy, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return nil, err
	}
	return v.Policies, nil
}

// UpdatePolicy patches the allow, deny, and description fields of an
// existing policy. A nil slice leaves that field unchanged.
func (c *Client) UpdatePolicy(name string, allow, deny []string, description *string) error {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return err
	}
	p, found := v.Policies[name]
	if !found {
		return engineerrors.New(engineerrors.KindPolicyNotFound, name)
	}

	if allow != nil {
		p.Allow = allow
	}
	if deny != nil {
		p.Deny = deny
	}
	if description != nil {
		p.Description = description
	}
	p.ModifiedAt = time.Now().UTC()
	v.Policies[name] = p
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return err
	}

	detail := "policy=" + name
	c.audit("policy.update", nil, auditlog.OutcomeSuccess, &detail)
	return nil
}

// RemovePolicy deletes a named policy. The name must already exist.
func (c *Client) RemovePolicy(name string) error {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return err
	}
	if _, found := v.Policies[name]; !found {
		return engineerrors.New(engineerrors.KindPolicyNotFound, name)
	}
	delete(v.Policies, name)
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return err
	}

	detail := "policy=" + name
	c.audit("policy.remove", nil, auditlog.OutcomeSuccess, &detail)
	return nil
}

// CreateSession issues a new session token scoped to an existing policy,
// returning the token exactly once; only its fingerprint is persisted.
func (c *Client) CreateSession(scope string, ttl time.Duration, label *string, runOnly bool) (token string, id string, expiresAt time.Time, err error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return "", "", time.Time{}, err
	}

	if _, found := v.Policies[scope]; !found {
		return "", "", time.Time{}, engineerrors.New(engineerrors.KindPolicyNotFound, scope)
	}

	hmacKey, err := cryptoengine.DeriveKey(c.key.KeyMaterial(), []byte("session-hmac"), 32)
	if err != nil {
		return "", "", time.Time{}, engineerrors.Wrap(engineerrors.KindOther, err, "deriving session HMAC key")
	}

	tok, fingerprint, err := session.Generate(hmacKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	sessionID, err := session.GenerateID()
	if err != nil {
		return "", "", time.Time{}, err
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)
	v.Sessions = append(v.Sessions, vaultstore.SessionRecord{
		ID:        sessionID,
		Scope:     scope,
		TokenHMAC: fingerprint,
		CreatedAt: now,
		ExpiresAt: expires,
		Label:     label,
		RunOnly:   runOnly,
	})
	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return "", "", time.Time{}, err
	}

	detail := fmt.Sprintf("session=%s, scope=%s", sessionID, scope)
	c.audit("session.create", nil, auditlog.OutcomeSuccess, &detail)
	return tok, sessionID, expires, nil
}

// ListSessions returns every session record in the vault, active or not.
func (c *Client) ListSessions() ([]vaultstore.SessionRecord, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return nil, err
	}
	return v.Sessions, nil
}

// RevokeSession marks one session revoked by ID.
func (c *Client) RevokeSession(id string) error {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return err
	}

	found := false
	for i := range v.Sessions {
		if v.Sessions[i].ID == id {
			v.Sessions[i].Revoked = true
			found = true
			break
		}
	}
	if !found {
		return engineerrors.New(engineerrors.KindSessionNotFound, id)
	}

	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return err
	}

	detail := "session=" + id
	c.audit("session.revoke", nil, auditlog.OutcomeSuccess, &detail)
	return nil
}

// RevokeAllSessions marks every non-revoked session revoked, returning the
// number affected.
func (c *Client) RevokeAllSessions() (int, error) {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range v.Sessions {
		if !v.Sessions[i].Revoked {
			v.Sessions[i].Revoked = true
			count++
		}
	}

	v.Touch()
	if err := vaultstore.Save(c.paths, v, c.key); err != nil {
		return 0, err
	}

	detail := fmt.Sprintf("count=%d", count)
	c.audit("session.revoke_all", nil, auditlog.OutcomeSuccess, &detail)
	return count, nil
}

// Rekey re-encrypts the vault under newKey, deriving the audit chain's
// continuation key from newKey so the chain's future entries are verifiable
// under the new credential. All existing session tokens become
// unvalidatable, since their fingerprints were computed under the old
// session-HMAC key. The audit-append error here is never swallowed: a
// silent rekey failure would leave an operator believing a credential
// rotation happened when it did not.
func (c *Client) Rekey(newKey vaultstore.VaultKey, actorName string) error {
	v, err := vaultstore.Load(c.paths, c.key)
	if err != nil {
		return err
	}

	if err := vaultstore.Save(c.paths, v, newKey); err != nil {
		return err
	}

	newAuditKey, err := auditlog.DeriveKey(newKey.KeyMaterial())
	if err != nil {
		return err
	}

	detail := "vault re-encrypted with new credentials"
	return auditlog.Append(c.paths.AuditPath(), "rekey", nil, actorName, auditlog.OutcomeSuccess, &detail, newAuditKey)
}

// AuditEntries returns every recorded audit log entry, in append order.
func (c *Client) AuditEntries() ([]auditlog.Entry, error) {
	return auditlog.ReadAll(c.paths.AuditPath())
}

// VerifyAuditChain recomputes the HMAC chain over the audit log, returning
// the number of entries that verified clean.
func (c *Client) VerifyAuditChain() (int, error) {
	return auditlog.VerifyChain(c.paths.AuditPath(), c.auditKey)
}

// audit appends one entry, swallowing any failure. This is the single
// place in the engine allowed to discard an audit-append error: the read or
// write it describes has already completed and returned its result to the
// caller, so there is nothing left to roll back.
func (c *Client) audit(operation string, secret *string, outcome string, detail *string) {
	_ = auditlog.Append(c.paths.AuditPath(), operation, secret, c.actor, outcome, detail, c.auditKey)
}
