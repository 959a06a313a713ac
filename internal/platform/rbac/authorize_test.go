package rbac

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"org-credential-broker/internal/membership/domain"
)

// mockMembershipGetter implements OrgMembershipGetter for tests.
type mockMembershipGetter struct {
	memberships map[string]*domain.Membership
	err         error
	calls       int
}

func (m *mockMembershipGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[userID+":"+orgID], nil
}

func getterWithRole(role domain.Role) *mockMembershipGetter {
	return &mockMembershipGetter{
		memberships: map[string]*domain.Membership{
			"user-1:org-1": {ID: "m1", UserID: "user-1", OrgID: "org-1", Role: role},
		},
	}
}

func TestAuthorize_RoleMatrix(t *testing.T) {
	testCases := []struct {
		role    domain.Role
		min     domain.Role
		allowed bool
	}{
		{domain.RoleMember, "", true},
		{domain.RoleMember, domain.RoleMember, true},
		{domain.RoleMember, domain.RoleAdmin, false},
		{domain.RoleAdmin, domain.RoleAdmin, true},
		{domain.RoleOwner, domain.RoleAdmin, true},
		{domain.RoleAdmin, domain.RoleOwner, false},
		{domain.RoleOwner, domain.RoleOwner, true},
		{domain.Role(" Owner "), domain.RoleAdmin, true},
		{domain.Role("ADMIN"), domain.RoleAdmin, true},
		{domain.Role("viewer"), domain.RoleMember, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.role)+"/"+string(tc.min), func(t *testing.T) {
			m, err := Authorize(context.Background(), getterWithRole(tc.role), "org-1", "user-1", tc.min)
			if tc.allowed {
				if err != nil {
					t.Fatalf("Authorize: %v", err)
				}
				if m == nil || m.ID != "m1" {
					t.Errorf("membership = %+v", m)
				}
				return
			}
			if !errors.Is(err, ErrForbidden) {
				t.Errorf("err = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestAuthorize_NoMembership(t *testing.T) {
	getter := getterWithRole(domain.RoleOwner)
	_, err := Authorize(context.Background(), getter, "org-2", "user-1", "")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestAuthorize_StoreError(t *testing.T) {
	getter := &mockMembershipGetter{err: errors.New("db down")}
	_, err := Authorize(context.Background(), getter, "org-1", "user-1", domain.RoleMember)
	if !errors.Is(err, ErrAuthzServiceError) {
		t.Errorf("err = %v, want ErrAuthzServiceError", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Error("store failure must not read as forbidden")
	}
}

func TestAuthorize_MissingIDs(t *testing.T) {
	getter := getterWithRole(domain.RoleOwner)
	if _, err := Authorize(context.Background(), getter, "", "user-1", ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if _, err := Authorize(context.Background(), getter, "org-1", "", ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if getter.calls != 0 {
		t.Error("store must not be queried without ids")
	}
}

func TestRequiredRoleForMethod(t *testing.T) {
	testCases := map[string]domain.Role{
		http.MethodGet:    domain.RoleMember,
		"get":             domain.RoleMember,
		http.MethodHead:   domain.RoleMember,
		http.MethodPost:   domain.RoleAdmin,
		http.MethodPatch:  domain.RoleAdmin,
		http.MethodPut:    domain.RoleAdmin,
		http.MethodDelete: domain.RoleAdmin,
		"BREW":            domain.RoleAdmin,
	}
	for method, want := range testCases {
		if got := RequiredRoleForMethod(method); got != want {
			t.Errorf("RequiredRoleForMethod(%q) = %q, want %q", method, got, want)
		}
	}
}
