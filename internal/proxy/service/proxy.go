// Package service runs one proxied action through identity, membership, connection and key checks
// before dispatching it to the tenant.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"org-credential-broker/internal/audit"
	"org-credential-broker/internal/bearer"
	identitydomain "org-credential-broker/internal/identity/domain"
	membershipdomain "org-credential-broker/internal/membership/domain"
	orgdomain "org-credential-broker/internal/organization/domain"
	"org-credential-broker/internal/platform/rbac"
	"org-credential-broker/internal/platform/requestctx"
	"org-credential-broker/internal/policy/engine"
	"org-credential-broker/internal/proxy/domain"
	"org-credential-broker/internal/telemetry"
	telemetrydomain "org-credential-broker/internal/telemetry/domain"
	"org-credential-broker/internal/tenant"
)

// IdentityVerifier verifies a control-plane bearer token.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*identitydomain.Identity, error)
}

// ConnectionResolver loads the tenant connection for an organization.
type ConnectionResolver interface {
	Resolve(ctx context.Context, orgID string) (*orgdomain.TenantConnection, error)
}

// KeyOpener decrypts a stored dedicated-key envelope.
type KeyOpener interface {
	Open(envelope string) (string, error)
}

// Deps holds the collaborators of Service. Policy, Audit, Events and Metrics may be nil.
type Deps struct {
	Identity    IdentityVerifier
	Memberships rbac.OrgMembershipGetter
	Policy      engine.Evaluator
	Connections ConnectionResolver
	Vault       KeyOpener
	Tenants     *tenant.Builder
	Audit       audit.AuditLogger
	Events      telemetry.EventEmitter
	Metrics     *telemetry.ProxyMetrics
	Logger      *slog.Logger
}

// Service is the Action Proxy.
type Service struct {
	deps         Deps
	identityHost string
	headerNames  []string
	log          *slog.Logger
}

// NewService returns a Service. identityHost is the control-plane host used to prefer the matching
// token when several are present; headerNames overrides bearer.DefaultHeaderNames when non-empty.
func NewService(deps Deps, identityHost string, headerNames ...string) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{deps: deps, identityHost: identityHost, headerNames: headerNames, log: log}
}

// Call is one inbound proxy request.
type Call struct {
	Headers bearer.HeaderSource
	Request domain.Request
}

// trace accumulates what is known about a call for the audit row, event and metrics.
type trace struct {
	start  time.Time
	action string
	orgID  string
	userID string
}

// Dispatch runs the call to completion or to its first failure. Errors wrap the sentinels that
// domain.Classify understands.
func (s *Service) Dispatch(ctx context.Context, call Call) (result json.RawMessage, err error) {
	tr := &trace{start: time.Now(), action: "unknown"}
	defer func() { s.finish(ctx, tr, err) }()

	action, ok := domain.LookupAction(call.Request.Action)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, call.Request.Action)
	}
	tr.action = action.Name

	token, ok := s.resolveToken(call.Headers)
	if !ok {
		return nil, identitydomain.ErrMissingCredential
	}

	ident, err := s.deps.Identity.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	tr.userID = ident.ID

	req := call.Request
	req.OrgID = strings.TrimSpace(req.OrgID)
	if err := req.ValidateOrgID(); err != nil {
		return nil, err
	}
	if err := req.ValidatePayload(); err != nil {
		return nil, err
	}
	tr.orgID = req.OrgID
	ctx = requestctx.WithIdentity(ctx, ident.ID, req.OrgID)

	minRole := s.requiredRole(ctx, req.OrgID, action)
	if _, err := rbac.Authorize(ctx, s.deps.Memberships, req.OrgID, ident.ID, minRole); err != nil {
		return nil, err
	}

	conn, err := s.deps.Connections.Resolve(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}

	return s.dispatchWithKey(ctx, conn, action, req.Payload)
}

// dispatchWithKey keeps the decrypted dedicated key scoped to this frame and the tenant client.
func (s *Service) dispatchWithKey(ctx context.Context, conn *orgdomain.TenantConnection, action domain.Action, payload json.RawMessage) (json.RawMessage, error) {
	dedicatedKey, err := s.deps.Vault.Open(conn.EncryptedDedicatedKey)
	if err != nil {
		return nil, err
	}
	if dedicatedKey == "" {
		return nil, tenant.ErrMissingDedicatedKey
	}

	client, err := s.deps.Tenants.Build(conn.TenantBaseURL, conn.TenantPublicKey, dedicatedKey)
	if err != nil {
		return nil, err
	}
	return client.Dispatch(ctx, action.Name, payload)
}

func (s *Service) resolveToken(headers bearer.HeaderSource) (string, bool) {
	if headers == nil {
		return "", false
	}
	if s.identityHost != "" {
		return bearer.ResolveSupabaseAccessToken(headers, s.identityHost, s.headerNames...)
	}
	return bearer.Resolve(headers, s.headerNames...)
}

// requiredRole combines the method floor with the policy decision. The policy can raise the
// requirement but never lower it; a policy error leaves the floor in place.
func (s *Service) requiredRole(ctx context.Context, orgID string, action domain.Action) membershipdomain.Role {
	floor := rbac.RequiredRoleForMethod(action.Method)
	if s.deps.Policy == nil {
		return floor
	}
	role, err := s.deps.Policy.MinimumRole(ctx, engine.ActionInput{
		OrgID:  orgID,
		Action: action.Name,
		Method: action.Method,
		Table:  action.Table,
	})
	if err != nil {
		s.log.WarnContext(ctx, "proxy: policy evaluation failed, using method floor",
			"org_id", orgID, "action", action.Name, "error", err)
		return floor
	}
	return membershipdomain.Max(floor, role)
}

func (s *Service) finish(ctx context.Context, tr *trace, err error) {
	failure := domain.Classify(err)
	outcome := failure.Outcome()
	elapsed := time.Since(tr.start)
	requestID, _ := requestctx.GetRequestID(ctx)

	attrs := []any{
		"action", tr.action,
		"org_id", tr.orgID,
		"user_id", tr.userID,
		"status", failure.Status,
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
	}
	var rejected *tenant.RejectedError
	if errors.As(err, &rejected) {
		attrs = append(attrs, "tenant_status", rejected.StatusCode, "tenant_body", rejected.Body)
	}
	switch {
	case err == nil:
		s.log.InfoContext(ctx, "proxy: action dispatched", attrs...)
	case failure.Status >= 500:
		s.log.ErrorContext(ctx, "proxy: action failed", append(attrs, "error", err)...)
	default:
		s.log.WarnContext(ctx, "proxy: action refused", append(attrs, "error", err)...)
	}

	metadata := ""
	if err != nil {
		metadata = failure.Message
	}
	if s.deps.Audit != nil {
		s.deps.Audit.LogEvent(ctx, tr.orgID, tr.userID, tr.action, outcome, metadata)
	}
	s.deps.Metrics.Record(ctx, tr.action, outcome, failure.Status, elapsed)
	telemetry.EmitAsync(s.deps.Events, ctx, &telemetrydomain.ProxyEvent{
		ID:         uuid.New().String(),
		EventType:  eventType(outcome),
		Source:     telemetrydomain.SourceOrgProxy,
		OrgID:      tr.orgID,
		UserID:     tr.userID,
		Action:     tr.action,
		Outcome:    outcome,
		Status:     failure.Status,
		DurationMs: elapsed.Milliseconds(),
		RequestID:  requestID,
		CreatedAt:  time.Now().UTC(),
	})
}

func eventType(outcome string) string {
	switch outcome {
	case domain.OutcomeAllowed:
		return telemetrydomain.EventTypeProxyDispatch
	case domain.OutcomeDenied:
		return telemetrydomain.EventTypeProxyDenied
	default:
		return telemetrydomain.EventTypeProxyFailed
	}
}
