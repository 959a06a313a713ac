package engine

import (
	"context"

	membershipdomain "org-credential-broker/internal/membership/domain"
)

// ActionInput is the policy input for one proxied action.
type ActionInput struct {
	OrgID  string
	Action string
	// Method is the HTTP method class the action maps to on the tenant (GET, POST, PATCH, DELETE).
	Method string
	Table  string
}

// Evaluator decides the minimum membership role an action requires.
type Evaluator interface {
	// MinimumRole returns the role the policy demands for in. Callers combine it with their own
	// floor; a policy can only raise the requirement.
	MinimumRole(ctx context.Context, in ActionInput) (membershipdomain.Role, error)
}
