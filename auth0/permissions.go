package auth0

import (
	"strings"
)

// Requirement is the set of permissions that can each unlock an operation.
// Order is preserved from the declaration; duplicates are dropped.
type Requirement []string

// ParseRequirement splits a comma-separated permission list such as
// "manage:barista, manage:manager". Blank entries are ignored.
func ParseRequirement(s string) Requirement {
	var req Requirement
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		req = append(req, p)
	}
	return req
}

func (r Requirement) String() string {
	return strings.Join(r, ", ")
}

// CheckPermissions applies the "at least one of" policy. It returns the
// permissions of req that claims grant, in requirement order.
func CheckPermissions(req Requirement, claims *Claims) ([]string, error) {
	if !claims.HasPermissionsClaim() {
		return nil, ErrMissingPermissionsClaim
	}

	granted := make(map[string]struct{}, len(claims.Permissions))
	for _, p := range claims.Permissions {
		granted[p] = struct{}{}
	}

	var matched []string
	for _, p := range req {
		if _, ok := granted[p]; ok {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, ErrForbidden
	}
	return matched, nil
}

// RoleScopes derives role scopes from matched permissions: the resource part
// of every "manage:<role>" permission. Never nil.
func RoleScopes(matched []string) []string {
	scopes := make([]string, 0, len(matched))
	for _, p := range matched {
		action, resource, ok := strings.Cut(p, ":")
		if !ok || action != "manage" || resource == "" {
			continue
		}
		scopes = append(scopes, resource)
	}
	return scopes
}
