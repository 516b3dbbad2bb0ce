package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Role is an organizational role held by a user
type Role string

const (
	RoleAgent       Role = "agent"
	RoleChefService Role = "chef_service"
	RoleDirecteur   Role = "directeur"
	RoleFinance     Role = "finance"
	RoleAdmin       Role = "admin"
)

var validRoles = map[Role]bool{
	RoleAgent:       true,
	RoleChefService: true,
	RoleDirecteur:   true,
	RoleFinance:     true,
	RoleAdmin:       true,
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	return validRoles[r]
}

// ParseRole converts a raw value into a Role
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
	return r, nil
}

// RoleSet is the set of roles a user currently holds
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles, ignoring unknown values
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r.IsValid() {
			set[r] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains role
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the set contains at least one of roles
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles sorted by name
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Actor is the user performing a workflow operation, resolved by the caller
type Actor struct {
	ID    string
	Roles RoleSet
}

// NewActor creates an actor with the given roles
func NewActor(id string, roles ...Role) Actor {
	return Actor{ID: id, Roles: NewRoleSet(roles...)}
}
