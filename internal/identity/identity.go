package identity

import (
	json "github.com/goccy/go-json"
)

// Identity is the authenticated user's canonical record as resolved by the remote API.
// It is a value type: holders get copies, so a role can only change through a new
// authentication.
type Identity struct {
	ID           uint          `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Role         Role          `json:"role"`
	Organization *Organization `json:"organization,omitempty"`
}

type Organization struct {
	ID   uint   `json:"id"`
	Name string `json:"name,omitempty"`
}

// Clone returns a deep copy.
func (i Identity) Clone() Identity {
	out := i
	if i.Organization != nil {
		org := *i.Organization
		out.Organization = &org
	}
	return out
}

// UnmarshalJSON also accepts a bare organization_id next to (or instead of) the
// nested organization object.
func (i *Identity) UnmarshalJSON(b []byte) error {
	type plain Identity
	var w struct {
		plain
		OrganizationID *uint `json:"organization_id"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*i = Identity(w.plain)
	if i.Organization == nil && w.OrganizationID != nil {
		i.Organization = &Organization{ID: *w.OrganizationID}
	}
	return nil
}

// Grant is a credential issued together with the identity it authenticates.
// User may be absent on refresh responses from older backends.
type Grant struct {
	Token string    `json:"token"`
	User  *Identity `json:"user,omitempty"`
}
