package audit

import (
	"context"
	"errors"
	"testing"

	"org-credential-broker/internal/audit/domain"
	"org-credential-broker/internal/platform/requestctx"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor, nil)

	logger.LogEvent(context.Background(), "org-1", "user-1", "GET_EMPLOYEES", domain.OutcomeAllowed, "status=200")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.OrgID != "org-1" {
		t.Errorf("org_id = %q, want %q", entry.OrgID, "org-1")
	}
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != "GET_EMPLOYEES" {
		t.Errorf("action = %q, want %q", entry.Action, "GET_EMPLOYEES")
	}
	if entry.Resource != "employee" {
		t.Errorf("resource = %q, want %q", entry.Resource, "employee")
	}
	if entry.Outcome != domain.OutcomeAllowed {
		t.Errorf("outcome = %q", entry.Outcome)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != "status=200" {
		t.Errorf("metadata = %q", entry.Metadata)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_EmptyOrgUsesSentinel(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "", "", "DELETE_EVERYTHING", domain.OutcomeDenied, "unknown action")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].OrgID != SentinelOrgID {
		t.Errorf("org_id = %q, want %q", repo.entries[0].OrgID, SentinelOrgID)
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogger_LogEvent_DefaultExtractorReadsRequestContext(t *testing.T) {
	repo := &mockAuditRepo{}
	ctx := requestctx.WithClientIP(context.Background(), "198.51.100.2")
	NewLogger(repo, nil, nil).LogEvent(ctx, "org-1", "user-1", "GET_SETTINGS", domain.OutcomeAllowed, "")

	if repo.entries[0].IP != "198.51.100.2" {
		t.Errorf("ip = %q", repo.entries[0].IP)
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "org-1", "user-1", "GET_SETTINGS", domain.OutcomeFailed, "")
	if len(repo.entries) != 0 {
		t.Error("no entry should be recorded")
	}
}

func TestLogger_NilRepoOrLogger(t *testing.T) {
	NewLogger(nil, nil, nil).LogEvent(context.Background(), "org-1", "u", "GET_SETTINGS", domain.OutcomeAllowed, "")
	var l *Logger
	l.LogEvent(context.Background(), "org-1", "u", "GET_SETTINGS", domain.OutcomeAllowed, "")
}
