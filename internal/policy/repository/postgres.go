package repository

import (
	"context"
	"time"

	"org-credential-broker/internal/db"
	"org-credential-broker/internal/policy/domain"
)

const (
	listEnabledPoliciesByOrg = `SELECT id::text, org_id::text, rules, enabled, created_at
FROM org_action_policies
WHERE org_id = $1 AND enabled
ORDER BY created_at`

	createPolicy = `INSERT INTO org_action_policies (id, org_id, rules, enabled, created_at)
VALUES ($1, $2, $3, $4, $5)`
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a policy repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// GetEnabledPoliciesByOrg returns the enabled policies for orgID, oldest first.
// An org without policies yields an empty slice and no error.
func (r *PostgresRepository) GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	rows, err := r.db.Query(ctx, listEnabledPoliciesByOrg, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create validates and persists p. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, createPolicy, p.ID, p.OrgID, p.Rules, p.Enabled, createdAt)
	return err
}
