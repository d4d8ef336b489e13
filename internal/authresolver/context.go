// Package authresolver turns environment variables and an optional
// interactive prompt into a (vault key, auth context) pair, enforcing the
// write-capability rule that session tokens are always read-only.
package authresolver

import "fmt"

// Method identifies how the caller authenticated.
type Method int

const (
	MethodPassphrase Method = iota
	MethodKeyfile
	MethodSessionToken
)

// Context carries the authorization facts derived from authentication:
// which scope (if any) restricts reads, whether writes are permitted, and
// whether value exposure is forbidden (run-only).
type Context struct {
	Method    Method
	SessionID string // populated when Method == MethodSessionToken
	Scope     *string
	CanWrite  bool
	RunOnly   bool
}

// MasterPassphrase builds the context for passphrase-authenticated master access.
func MasterPassphrase() Context {
	return Context{Method: MethodPassphrase, CanWrite: true}
}

// MasterKeyfile builds the context for keyfile-authenticated master access.
func MasterKeyfile() Context {
	return Context{Method: MethodKeyfile, CanWrite: true}
}

// FromToken builds the context for a validated session token.
func FromToken(sessionID string, scope string, runOnly bool) Context {
	return Context{
		Method:    MethodSessionToken,
		SessionID: sessionID,
		Scope:     &scope,
		CanWrite:  false,
		RunOnly:   runOnly,
	}
}

// ActorName renders the human-readable label recorded in audit entries.
func (c Context) ActorName() string {
	switch c.Method {
	case MethodPassphrase:
		return "master(passphrase)"
	case MethodKeyfile:
		return "master(keyfile)"
	case MethodSessionToken:
		return fmt.Sprintf("token(%s)", c.SessionID)
	default:
		return "unknown"
	}
}
