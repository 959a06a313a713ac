package repository

import (
	"context"

	"org-credential-broker/internal/membership/domain"
)

// Repository defines persistence for memberships. The broker only reads them; CreateMembership
// exists for provisioning tools.
type Repository interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
}
