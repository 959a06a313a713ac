package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	membershipdomain "org-credential-broker/internal/membership/domain"
	"org-credential-broker/internal/policy/domain"
	"org-credential-broker/internal/policy/repository"
)

// mockPolicyRepo implements repository.Repository for tests.
type mockPolicyRepo struct {
	policies map[string][]*domain.Policy
	err      error
	calls    int
}

var _ repository.Repository = (*mockPolicyRepo)(nil)

func (m *mockPolicyRepo) GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.policies[orgID], nil
}

func (m *mockPolicyRepo) Create(ctx context.Context, p *domain.Policy) error {
	return nil
}

const ownerForDeletes = `package broker.actions

default min_role := "member"

min_role := "owner" if startswith(input.action, "DELETE_")
`

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	testCases := map[string]membershipdomain.Role{
		"GET":    membershipdomain.RoleMember,
		"head":   membershipdomain.RoleMember,
		"POST":   membershipdomain.RoleAdmin,
		"PATCH":  membershipdomain.RoleAdmin,
		"DELETE": membershipdomain.RoleAdmin,
	}
	for method, want := range testCases {
		got, err := e.MinimumRole(context.Background(), ActionInput{Action: "X", Method: method})
		if err != nil {
			t.Fatalf("MinimumRole(%s): %v", method, err)
		}
		if got != want {
			t.Errorf("MinimumRole(%s) = %q, want %q", method, got, want)
		}
	}
}

func TestOPAEvaluator_CustomModule(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), ownerForDeletes, nil, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	got, err := e.MinimumRole(context.Background(), ActionInput{Action: "DELETE_EMPLOYEE", Method: "DELETE"})
	if err != nil {
		t.Fatalf("MinimumRole: %v", err)
	}
	if got != membershipdomain.RoleOwner {
		t.Errorf("MinimumRole = %q, want owner", got)
	}
}

func TestOPAEvaluator_InvalidModule(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\n\nthis is not rego", nil, nil); err == nil {
		t.Fatal("NewOPAEvaluator should reject an invalid module")
	}
}

func TestOPAEvaluator_NonRoleResult(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), "package broker.actions\n\nmin_role := \"superuser\"\n", nil, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if _, err := e.MinimumRole(context.Background(), ActionInput{Method: "GET"}); !errors.Is(err, ErrNoDecision) {
		t.Errorf("err = %v, want ErrNoDecision", err)
	}

	undefined, err := NewOPAEvaluator(context.Background(), "package broker.actions\n\nmin_role := \"admin\" if input.never\n", nil, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if _, err := undefined.MinimumRole(context.Background(), ActionInput{Method: "GET"}); !errors.Is(err, ErrNoDecision) {
		t.Errorf("undefined err = %v, want ErrNoDecision", err)
	}
}

func TestOPAEvaluator_OrgPolicies(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string][]*domain.Policy{
		"org-1": {{ID: "p-1", OrgID: "org-1", Rules: ownerForDeletes, Enabled: true}},
	}}
	e, err := NewOPAEvaluator(context.Background(), "", repo, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}

	got, err := e.MinimumRole(context.Background(), ActionInput{OrgID: "org-1", Action: "DELETE_EMPLOYEE", Method: "DELETE"})
	if err != nil || got != membershipdomain.RoleOwner {
		t.Errorf("org-1 MinimumRole = (%q, %v), want owner", got, err)
	}
	got, err = e.MinimumRole(context.Background(), ActionInput{OrgID: "org-2", Action: "DELETE_EMPLOYEE", Method: "DELETE"})
	if err != nil || got != membershipdomain.RoleAdmin {
		t.Errorf("org-2 MinimumRole = (%q, %v), want base admin", got, err)
	}
	if repo.calls != 2 {
		t.Errorf("repo calls = %d, want 2", repo.calls)
	}
}

func TestOPAEvaluator_OrgPolicyFailuresFallBackToBase(t *testing.T) {
	repo := &mockPolicyRepo{err: errors.New("db down")}
	e, _ := NewOPAEvaluator(context.Background(), "", repo, nil)
	got, err := e.MinimumRole(context.Background(), ActionInput{OrgID: "org-1", Method: "GET"})
	if err != nil || got != membershipdomain.RoleMember {
		t.Errorf("MinimumRole = (%q, %v), want base member", got, err)
	}

	broken := &mockPolicyRepo{policies: map[string][]*domain.Policy{
		"org-1": {{Rules: "not rego at all", Enabled: true}},
	}}
	e, _ = NewOPAEvaluator(context.Background(), "", broken, nil)
	got, err = e.MinimumRole(context.Background(), ActionInput{OrgID: "org-1", Method: "POST"})
	if err != nil || got != membershipdomain.RoleAdmin {
		t.Errorf("MinimumRole = (%q, %v), want base admin", got, err)
	}
}

func TestLoadOPAEvaluator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.rego")
	if err := os.WriteFile(path, []byte(ownerForDeletes), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	e, err := LoadOPAEvaluator(context.Background(), path, nil, nil)
	if err != nil {
		t.Fatalf("LoadOPAEvaluator: %v", err)
	}
	if got, _ := e.MinimumRole(context.Background(), ActionInput{Action: "DELETE_SETTINGS"}); got != membershipdomain.RoleOwner {
		t.Errorf("MinimumRole = %q, want owner", got)
	}
	if _, err := LoadOPAEvaluator(context.Background(), filepath.Join(t.TempDir(), "missing.rego"), nil, nil); err == nil {
		t.Error("LoadOPAEvaluator should fail on a missing file")
	}
	if _, err := LoadOPAEvaluator(context.Background(), "", nil, nil); err != nil {
		t.Errorf("LoadOPAEvaluator with no path: %v", err)
	}
}
