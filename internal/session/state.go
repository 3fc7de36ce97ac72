package session

import "sociomile-gateway/internal/identity"

// State is a snapshot of one browsing session.
// The role predicates are pure; they never trigger a load.
type State struct {
	Identity *identity.Identity
	Loading  bool
}

func (s State) IsAuthenticated() bool { return s.Identity != nil }

// Role returns RoleUnset when nobody is signed in.
func (s State) Role() identity.Role {
	if s.Identity == nil {
		return identity.RoleUnset
	}
	return s.Identity.Role
}

// IsRole reports whether the signed-in user holds r. RoleUnset never matches.
func (s State) IsRole(r identity.Role) bool {
	return s.Identity != nil && r.Valid() && s.Identity.Role == r
}

func (s State) IsSuperAdmin() bool        { return s.IsRole(identity.RoleSuperAdmin) }
func (s State) IsOrganizationOwner() bool { return s.IsRole(identity.RoleOrganizationOwner) }
func (s State) IsOrganizationSales() bool { return s.IsRole(identity.RoleOrganizationSales) }
func (s State) IsGuest() bool             { return s.IsRole(identity.RoleGuest) }

// IsOrganization covers both organization roles.
func (s State) IsOrganization() bool {
	return s.IsOrganizationOwner() || s.IsOrganizationSales()
}
