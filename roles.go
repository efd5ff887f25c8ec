package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Role is the user's role
type Role string

const (
	// RoleGuest has no account privileges (i.e. browse)
	RoleGuest Role = "guest"
	// RoleAuthor can submit and track their own work
	RoleAuthor Role = "author"
	// RoleReviewer can review assigned submissions
	RoleReviewer Role = "reviewer"
	// RoleAdmin can reach the admin area
	RoleAdmin Role = "admin"
)

var roleHierarchy = map[Role]int{
	RoleGuest:    0,
	RoleAuthor:   1,
	RoleReviewer: 2,
	RoleAdmin:    3,
}

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAdmin reports whether r is the admin role
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// IsAtLeast checks if this role meets the minimum required level.
// Unknown roles never meet any level.
func (r Role) IsAtLeast(minRole Role) bool {
	current, ok := roleHierarchy[r]
	if !ok {
		return false
	}
	required, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return current >= required
}

// ParseRole converts a wire string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", errors.New("invalid role: "+s, errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeInvalidRole)
	}
	return role, nil
}
