package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"org-credential-broker/internal/db"
	"org-credential-broker/internal/organization/domain"
)

const (
	getOrganizationByID = `SELECT id::text, name, COALESCE(encrypted_dedicated_key, ''), created_at
FROM organizations
WHERE id = $1`

	createOrganization = `INSERT INTO organizations (id, name, encrypted_dedicated_key, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4)`

	setEncryptedDedicatedKey = `UPDATE organizations SET encrypted_dedicated_key = $2 WHERE id = $1`

	getConnectionSettings = `SELECT org_id::text, COALESCE(tenant_base_url, ''), COALESCE(tenant_public_key, ''), updated_at
FROM organization_connection_settings
WHERE org_id = $1`

	upsertConnectionSettings = `INSERT INTO organization_connection_settings (org_id, tenant_base_url, tenant_public_key, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (org_id) DO UPDATE
SET tenant_base_url = EXCLUDED.tenant_base_url,
    tenant_public_key = EXCLUDED.tenant_public_key,
    updated_at = EXCLUDED.updated_at`
)

// ErrOrgNotFound is returned by SetEncryptedDedicatedKey when no row was updated.
var ErrOrgNotFound = errors.New("organization not found")

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an organization repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	var o domain.Org
	err := r.db.QueryRow(ctx, getOrganizationByID, id).Scan(&o.ID, &o.Name, &o.EncryptedDedicatedKey, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// CreateOrganization validates and persists the organization.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	if err := o.Validate(); err != nil {
		return err
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, createOrganization, o.ID, o.Name, o.EncryptedDedicatedKey, createdAt)
	return err
}

// SetEncryptedDedicatedKey stores the dedicated key envelope for orgID.
func (r *PostgresRepository) SetEncryptedDedicatedKey(ctx context.Context, orgID, envelope string) error {
	tag, err := r.db.Exec(ctx, setEncryptedDedicatedKey, orgID, envelope)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

// GetConnectionSettings returns the tenant connection settings for orgID, or nil if none are stored.
// A returned row may still be incomplete; callers check Complete.
func (r *PostgresRepository) GetConnectionSettings(ctx context.Context, orgID string) (*domain.ConnectionSettings, error) {
	var s domain.ConnectionSettings
	err := r.db.QueryRow(ctx, getConnectionSettings, orgID).Scan(&s.OrgID, &s.TenantBaseURL, &s.TenantPublicKey, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpsertConnectionSettings creates or replaces the settings row for s.OrgID.
func (r *PostgresRepository) UpsertConnectionSettings(ctx context.Context, s *domain.ConnectionSettings) error {
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, upsertConnectionSettings, s.OrgID, s.TenantBaseURL, s.TenantPublicKey, updatedAt)
	return err
}
