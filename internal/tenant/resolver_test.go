package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"org-credential-broker/internal/organization/domain"
)

type mockStore struct {
	mu          sync.Mutex
	settings    *domain.ConnectionSettings
	org         *domain.Org
	settingsErr error
	orgErr      error
	calls       []string
}

func (m *mockStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockStore) GetConnectionSettings(ctx context.Context, orgID string) (*domain.ConnectionSettings, error) {
	m.record("settings:" + orgID)
	return m.settings, m.settingsErr
}

func (m *mockStore) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	m.record("org:" + id)
	return m.org, m.orgErr
}

func completeStore() *mockStore {
	return &mockStore{
		settings: &domain.ConnectionSettings{OrgID: "org-1", TenantBaseURL: "https://tenant.example", TenantPublicKey: "pk"},
		org:      &domain.Org{ID: "org-1", Name: "Acme", EncryptedDedicatedKey: "v1:gcm:a:b:c"},
	}
}

func TestResolver_Resolve_Success(t *testing.T) {
	store := completeStore()
	conn, err := NewResolver(store).Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conn.TenantBaseURL != "https://tenant.example" || conn.TenantPublicKey != "pk" || conn.EncryptedDedicatedKey != "v1:gcm:a:b:c" {
		t.Errorf("connection = %+v", conn)
	}
	if len(store.calls) != 2 {
		t.Errorf("calls = %v, want both lookups", store.calls)
	}
}

func TestResolver_Resolve_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*mockStore)
		want   error
	}{
		{"no settings row", func(s *mockStore) { s.settings = nil }, ErrMissingConnectionSettings},
		{"no base url", func(s *mockStore) { s.settings.TenantBaseURL = "" }, ErrMissingConnectionSettings},
		{"no public key", func(s *mockStore) { s.settings.TenantPublicKey = " " }, ErrMissingConnectionSettings},
		{"no settings and no key", func(s *mockStore) { s.settings = nil; s.org.EncryptedDedicatedKey = "" }, ErrMissingConnectionSettings},
		{"no dedicated key", func(s *mockStore) { s.org.EncryptedDedicatedKey = "" }, ErrMissingDedicatedKey},
		{"no org row", func(s *mockStore) { s.org = nil }, ErrMissingDedicatedKey},
		{"settings backend failure", func(s *mockStore) { s.settingsErr = errors.New("db down") }, ErrConnectionBackend},
		{"org backend failure", func(s *mockStore) { s.settings = nil; s.orgErr = errors.New("db down") }, ErrConnectionBackend},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := completeStore()
			tc.mutate(store)
			conn, err := NewResolver(store).Resolve(context.Background(), "org-1")
			if conn != nil {
				t.Errorf("connection = %+v, want nil", conn)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
