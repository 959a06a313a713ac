package domain

import (
	"errors"
	"net/http"

	auditdomain "org-credential-broker/internal/audit/domain"
	identitydomain "org-credential-broker/internal/identity/domain"
	"org-credential-broker/internal/platform/rbac"
	"org-credential-broker/internal/security"
	"org-credential-broker/internal/tenant"
)

var (
	// ErrUnknownAction is returned for any action outside Actions.
	ErrUnknownAction = errors.New("unknown action")
	// ErrBadRequest is returned for an unreadable body, a non-UUID orgId or a non-object payload.
	ErrBadRequest = errors.New("invalid request")
)

// Outcome values shared by audit rows, telemetry events and metrics.
const (
	OutcomeAllowed = auditdomain.OutcomeAllowed
	OutcomeDenied  = auditdomain.OutcomeDenied
	OutcomeFailed  = auditdomain.OutcomeFailed
)

// Failure is the caller-facing view of an error: a status and a generic message.
type Failure struct {
	Status  int
	Message string
}

// Outcome groups the status: success, a refusal of the caller, or a failure on our side or the tenant's.
func (f Failure) Outcome() string {
	switch {
	case f.Status < 400:
		return OutcomeAllowed
	case f.Status <= http.StatusForbidden:
		return OutcomeDenied
	default:
		return OutcomeFailed
	}
}

var failures = []struct {
	err     error
	failure Failure
}{
	{ErrUnknownAction, Failure{http.StatusBadRequest, "Unknown action"}},
	{ErrBadRequest, Failure{http.StatusBadRequest, "invalid request"}},
	{identitydomain.ErrMissingCredential, Failure{http.StatusUnauthorized, "missing bearer"}},
	{identitydomain.ErrInvalidCredential, Failure{http.StatusUnauthorized, "invalid credential"}},
	{rbac.ErrUnauthenticated, Failure{http.StatusUnauthorized, "invalid credential"}},
	{rbac.ErrForbidden, Failure{http.StatusForbidden, "forbidden"}},
	{tenant.ErrMissingConnectionSettings, Failure{http.StatusPreconditionFailed, "missing_connection_settings"}},
	{tenant.ErrIncompleteTenantConfig, Failure{http.StatusPreconditionFailed, "missing_connection_settings"}},
	{tenant.ErrMissingDedicatedKey, Failure{http.StatusPreconditionRequired, "missing_dedicated_key"}},
	{security.ErrDecryptionFailed, Failure{http.StatusInternalServerError, "dedicated key unavailable"}},
	{security.ErrMalformedEnvelope, Failure{http.StatusInternalServerError, "dedicated key unavailable"}},
	{identitydomain.ErrIdentityServiceUnavailable, Failure{http.StatusBadGateway, "upstream unavailable"}},
	{tenant.ErrUpstreamUnavailable, Failure{http.StatusBadGateway, "upstream unavailable"}},
	{tenant.ErrTenantRejected, Failure{http.StatusBadGateway, "tenant request failed"}},
}

// Classify maps err to the status and message returned to the caller. Unrecognised errors,
// including store and policy backend failures, are 500 "internal error".
func Classify(err error) Failure {
	if err == nil {
		return Failure{Status: http.StatusOK}
	}
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f.failure
		}
	}
	return Failure{Status: http.StatusInternalServerError, Message: "internal error"}
}
