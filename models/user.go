package models

import (
	"strings"
	"time"
)

// Role is an identity provider role, e.g. "Barista" or "Manager"
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Scope returns the role scope the role belongs to (its lower-cased name)
func (r Role) Scope() string {
	return strings.ToLower(r.Name)
}

// InScope reports whether the role is reachable from scopes
func (r Role) InScope(scopes []string) bool {
	return containsFold(scopes, r.Scope())
}

// User represents a user managed through the identity provider
type User struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Blocked   bool      `json:"blocked"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HasRoleIn reports whether any of the user's roles is in scopes
func (u *User) HasRoleIn(scopes []string) bool {
	for _, role := range u.Roles {
		if containsFold(scopes, role) {
			return true
		}
	}
	return false
}

// CreateUserInput is the body accepted when creating a user
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=100"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserInput is the body accepted when updating a user. Nil fields are
// left unchanged.
type UpdateUserInput struct {
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Name    *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Blocked *bool   `json:"blocked,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u *UpdateUserInput) IsEmpty() bool {
	return u.Email == nil && u.Name == nil && u.Blocked == nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
