package auth0

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the access token claims issued by Auth0 for this API.
// Permissions is nil when the token carries no "permissions" claim at all
// (RBAC disabled for the API); an empty non-nil slice means it was present.
type Claims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions"`
	Scope       string   `json:"scope,omitempty"`
	Azp         string   `json:"azp,omitempty"`
}

// HasPermissionsClaim reports whether the token included a permissions claim
func (c *Claims) HasPermissionsClaim() bool {
	return c != nil && c.Permissions != nil
}

// HasPermission reports whether permission is granted verbatim
func (c *Claims) HasPermission(permission string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
