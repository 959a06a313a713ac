// Package audit records one row per proxy decision. Writes are best-effort and never fail a request.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"org-credential-broker/internal/audit/domain"
	auditrepo "org-credential-broker/internal/audit/repository"
	"org-credential-broker/internal/platform/requestctx"
)

// SentinelOrgID is the org_id used for events that have no org (e.g. a body that failed to parse).
const SentinelOrgID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event for a proxied action.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, outcome, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *slog.Logger
}

// NewLogger returns an AuditLogger that persists to repo. ipExtractor may be nil; then the IP is
// read from requestctx, falling back to "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *slog.Logger) *Logger {
	if ipExtractor == nil {
		ipExtractor = requestctx.GetClientIP
	}
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// LogEvent writes one audit log entry. The resource is derived from the action name.
// Errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, outcome, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := l.ipExtractor(ctx)
	if ip == "" {
		ip = "unknown"
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	ar := ParseAction(action)
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  ar.Resource,
		Outcome:   outcome,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.WarnContext(ctx, "audit: failed to log event", "action", action, "outcome", outcome, "error", err)
	}
}
