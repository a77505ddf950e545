// Package access maps self-asserted identities to stage roles.
//
// Membership is configuration data. An identity may appear in several sets;
// ResolveRole picks the one it acts in by priority (Creator, then Inspector,
// then Reviewer). Roles lists every membership for display.
package access

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/rmatrack/internal/rma"
)

// ErrDenied is returned for an identity that belongs to no role set.
var ErrDenied = errors.New("identity is not in any role set")

// Roles is the configured membership, keyed by role.
type Roles struct {
	Creators   []string `yaml:"creators"`
	Inspectors []string `yaml:"inspectors"`
	Reviewers  []string `yaml:"reviewers"`
}

// Resolver answers role questions for identities.
type Resolver struct {
	sets map[rma.Role]map[string]struct{}
}

// NewResolver builds a resolver from configured membership.
// Entries are normalized the same way lookups are; blank entries are ignored.
func NewResolver(roles Roles) *Resolver {
	r := &Resolver{sets: make(map[rma.Role]map[string]struct{}, 3)}
	r.add(rma.RoleCreator, roles.Creators)
	r.add(rma.RoleInspector, roles.Inspectors)
	r.add(rma.RoleReviewer, roles.Reviewers)
	return r
}

func (r *Resolver) add(role rma.Role, identities []string) {
	set := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		if n := Normalize(id); n != "" {
			set[n] = struct{}{}
		}
	}
	r.sets[role] = set
}

// Normalize trims, NFC-normalizes and lower-cases an identity.
func Normalize(identity string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(identity)))
}

// ResolveRole returns the highest-priority role for identity.
func (r *Resolver) ResolveRole(identity string) (rma.Role, error) {
	n := Normalize(identity)
	if n == "" {
		return "", ErrDenied
	}
	for _, role := range rma.RolePriority {
		if _, ok := r.sets[role][n]; ok {
			return role, nil
		}
	}
	return "", ErrDenied
}

// Roles returns every role identity holds, in priority order.
func (r *Resolver) Roles(identity string) []rma.Role {
	n := Normalize(identity)
	var out []rma.Role
	for _, role := range rma.RolePriority {
		if _, ok := r.sets[role][n]; ok {
			out = append(out, role)
		}
	}
	return out
}

// Members returns the number of identities configured for role.
func (r *Resolver) Members(role rma.Role) int {
	return len(r.sets[role])
}
