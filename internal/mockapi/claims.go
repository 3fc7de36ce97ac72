package mockapi

import "github.com/golang-jwt/jwt/v5"

// Claims are the only claims shape the mock API issues. The role and organization
// travel in the token so that profile lookups can be cross-checked.
type Claims struct {
	jwt.RegisteredClaims

	UserID         uint   `json:"user_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID *uint  `json:"organization_id,omitempty"`
}
