// Package policy evaluates glob-based allow/deny access rules over secret
// names, with deny-overrides-allow semantics and a default-deny answer.
package policy

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/vaultstore"
)

// CanRead decides whether p allows reading secretName.
//
//  1. If any deny pattern matches, deny.
//  2. Else if any allow pattern matches, allow.
//  3. Else deny.
func CanRead(p vaultstore.Policy, secretName string) (bool, error) {
	denySet, err := buildGlobSet(p.Deny)
	if err != nil {
		return false, err
	}
	if denySet.matches(secretName) {
		return false, nil
	}

	allowSet, err := buildGlobSet(p.Allow)
	if err != nil {
		return false, err
	}
	return allowSet.matches(secretName), nil
}

// Filter returns the subset of names p allows, preserving input order.
func Filter(p vaultstore.Policy, names []string) ([]string, error) {
	allowed := make([]string, 0, len(names))
	for _, name := range names {
		ok, err := CanRead(p, name)
		if err != nil {
			return nil, err
		}
		if ok {
			allowed = append(allowed, name)
		}
	}
	return allowed, nil
}

// globSet is a compiled set of glob patterns; an empty set matches nothing.
type globSet struct {
	globs []glob.Glob
}

func (s globSet) matches(name string) bool {
	for _, g := range s.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func buildGlobSet(patterns []string) (globSet, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return globSet{}, engineerrors.New(engineerrors.KindOther,
				fmt.Sprintf("invalid glob pattern %q: %v", pattern, err))
		}
		globs = append(globs, g)
	}
	return globSet{globs: globs}, nil
}
