package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"org-credential-broker/internal/db"
	"org-credential-broker/internal/membership/domain"
)

const (
	getMembershipByUserAndOrg = `SELECT id::text, user_id, org_id::text, role::text, created_at
FROM memberships
WHERE user_id = $1 AND org_id = $2`

	createMembership = `INSERT INTO memberships (id, org_id, user_id, role, created_at)
VALUES ($1, $2, $3, $4, $5)`
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a membership repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	var (
		m         domain.Membership
		role      string
		createdAt time.Time
	)
	err := r.db.QueryRow(ctx, getMembershipByUserAndOrg, userID, orgID).
		Scan(&m.ID, &m.UserID, &m.OrgID, &role, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	m.CreatedAt = createdAt
	return &m, nil
}

// CreateMembership persists the membership. The membership must have ID set.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, createMembership, m.ID, m.OrgID, m.UserID, string(m.Role), createdAt)
	return err
}
