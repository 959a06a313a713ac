package repository

import (
	"context"

	"org-credential-broker/internal/organization/domain"
)

// Repository defines persistence for organizations and their tenant connection settings.
// Get methods return (nil, nil) when the row does not exist.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
	SetEncryptedDedicatedKey(ctx context.Context, orgID, envelope string) error
	GetConnectionSettings(ctx context.Context, orgID string) (*domain.ConnectionSettings, error)
	UpsertConnectionSettings(ctx context.Context, s *domain.ConnectionSettings) error
}
