package identity

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Role is the closed set of authorization levels a user can hold.
// Keep the values stable; they are part of the remote API contract.
type Role string

const (
	RoleUnset             Role = ""
	RoleSuperAdmin        Role = "super_admin"
	RoleOrganizationOwner Role = "organization_owner"
	RoleOrganizationSales Role = "organization_sales"
	RoleGuest             Role = "guest"
)

// Roles lists every assignable role (RoleUnset excluded).
var Roles = []Role{RoleSuperAdmin, RoleOrganizationOwner, RoleOrganizationSales, RoleGuest}

// Landing paths, one per role family.
const (
	PathHubDashboard          = "/hub/dashboard"
	PathOrganizationDashboard = "/organization/dashboard"
	PathGuestDashboard        = "/guest/dashboard"
)

// ParseRole maps a wire value onto the closed set. Unknown values become RoleUnset
// so that they never satisfy a role predicate.
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleOrganizationOwner, RoleOrganizationSales, RoleGuest:
		return r
	default:
		return RoleUnset
	}
}

func (r Role) Valid() bool { return r != RoleUnset && ParseRole(string(r)) == r }

func (r Role) IsOrganization() bool {
	return r == RoleOrganizationOwner || r == RoleOrganizationSales
}

// Landing returns the dashboard a signed-in user of this role is sent to.
func (r Role) Landing() (string, bool) {
	switch r {
	case RoleSuperAdmin:
		return PathHubDashboard, true
	case RoleOrganizationOwner, RoleOrganizationSales:
		return PathOrganizationDashboard, true
	case RoleGuest:
		return PathGuestDashboard, true
	default:
		return "", false
	}
}

// UnmarshalJSON accepts both "guest" and the backend's {"name":"guest"} shape.
func (r *Role) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*r = RoleUnset
		return nil
	case b[0] == '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = ParseRole(obj.Name)
		return nil
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = ParseRole(s)
		return nil
	}
}
