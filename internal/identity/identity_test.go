package identity

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestIdentity_DecodesRoleShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Role
	}{
		{name: "plain string", body: `{"id":1,"email":"a@b.c","name":"A","role":"super_admin"}`, want: RoleSuperAdmin},
		{name: "nested object", body: `{"id":1,"email":"a@b.c","name":"A","role":{"id":3,"name":"organization_sales"}}`, want: RoleOrganizationSales},
		{name: "missing", body: `{"id":1,"email":"a@b.c","name":"A"}`, want: RoleUnset},
		{name: "null", body: `{"id":1,"role":null}`, want: RoleUnset},
		{name: "unknown value", body: `{"id":1,"role":"network_operator"}`, want: RoleUnset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id Identity
			if err := json.Unmarshal([]byte(tt.body), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if id.Role != tt.want {
				t.Fatalf("expected role %q, got %q", tt.want, id.Role)
			}
		})
	}
}

func TestIdentity_OrganizationID(t *testing.T) {
	var id Identity
	if err := json.Unmarshal([]byte(`{"id":7,"email":"o@x.io","name":"O","role":"organization_owner","organization_id":42}`), &id); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id.ID != 7 || id.Email != "o@x.io" || id.Name != "O" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.Organization == nil || id.Organization.ID != 42 {
		t.Fatalf("expected organization 42, got %+v", id.Organization)
	}

	var nested Identity
	if err := json.Unmarshal([]byte(`{"id":7,"organization":{"id":5,"name":"TechCorp"},"organization_id":42}`), &nested); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if nested.Organization == nil || nested.Organization.ID != 5 || nested.Organization.Name != "TechCorp" {
		t.Fatalf("nested organization should win, got %+v", nested.Organization)
	}
}

func TestIdentity_CloneIsDeep(t *testing.T) {
	id := Identity{ID: 1, Role: RoleGuest, Organization: &Organization{ID: 9}}
	c := id.Clone()
	c.Organization.ID = 10
	if id.Organization.ID != 9 {
		t.Fatalf("clone shares organization pointer")
	}
}

func TestRole_Landing(t *testing.T) {
	tests := []struct {
		role Role
		path string
		ok   bool
	}{
		{RoleSuperAdmin, PathHubDashboard, true},
		{RoleOrganizationOwner, PathOrganizationDashboard, true},
		{RoleOrganizationSales, PathOrganizationDashboard, true},
		{RoleGuest, PathGuestDashboard, true},
		{RoleUnset, "", false},
	}
	for _, tt := range tests {
		path, ok := tt.role.Landing()
		if path != tt.path || ok != tt.ok {
			t.Fatalf("%q: expected (%q,%v), got (%q,%v)", tt.role, tt.path, tt.ok, path, ok)
		}
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if RoleUnset.Valid() || Role("owner").Valid() {
		t.Fatalf("unset and foreign roles must be invalid")
	}
}
