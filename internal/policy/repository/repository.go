package repository

import (
	"context"

	"org-credential-broker/internal/policy/domain"
)

// Repository defines persistence for org action policies.
type Repository interface {
	GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
}
