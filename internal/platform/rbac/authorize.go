// Package rbac decides whether a verified user may act for an organization.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"org-credential-broker/internal/membership/domain"
)

var (
	// ErrUnauthenticated is returned when the context carries no verified user or org.
	ErrUnauthenticated = errors.New("org and user context required")
	// ErrForbidden is returned when the user has no membership or too weak a role.
	ErrForbidden = errors.New("forbidden")
	// ErrAuthzServiceError is returned when the membership store cannot be queried.
	// It is never conflated with ErrForbidden.
	ErrAuthzServiceError = errors.New("membership lookup failed")
)

// OrgMembershipGetter returns a user's membership in an org, or (nil, nil) when there is none.
type OrgMembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// Authorize looks up the (orgID, userID) membership and checks it grants at least minRole.
// An empty minRole only requires the membership to exist.
func Authorize(ctx context.Context, getter OrgMembershipGetter, orgID, userID string, minRole domain.Role) (*domain.Membership, error) {
	if orgID == "" || userID == "" {
		return nil, ErrUnauthenticated
	}
	m, err := getter.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthzServiceError, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: not a member of this organization", ErrForbidden)
	}
	if minRole == "" {
		return m, nil
	}
	if !m.Role.AtLeast(minRole) {
		return nil, fmt.Errorf("%w: role %s required", ErrForbidden, minRole)
	}
	return m, nil
}

// RequiredRoleForMethod maps an HTTP method class to the minimum role: reads need membership,
// mutations need admin. Unknown methods are treated as mutations.
func RequiredRoleForMethod(method string) domain.Role {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return domain.RoleMember
	default:
		return domain.RoleAdmin
	}
}
