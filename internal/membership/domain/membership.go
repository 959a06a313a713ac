package domain

import (
	"strings"
	"time"
)

// Membership links a user to an organization with a role.
type Membership struct {
	ID        string
	UserID    string
	OrgID     string
	Role      Role
	CreatedAt time.Time
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole normalizes a stored role (trimmed, case-insensitive). Unknown values return ("", false).
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleOwner, RoleAdmin, RoleMember:
		return r, true
	default:
		return "", false
	}
}

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r grants everything min grants. Unknown roles grant nothing.
func (r Role) AtLeast(min Role) bool {
	n, _ := ParseRole(string(r))
	return n.rank() > 0 && n.rank() >= min.rank()
}

// Max returns the stronger of two roles.
func Max(a, b Role) Role {
	if b.rank() > a.rank() {
		return b
	}
	return a
}
