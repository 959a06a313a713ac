package repository

import (
	"context"
	"time"

	"org-credential-broker/internal/audit/domain"
	"org-credential-broker/internal/db"
)

const createAuditLog = `INSERT INTO audit_logs (id, org_id, user_id, action, resource, outcome, ip, metadata, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9)`

// PostgresRepository writes audit rows through pgx.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, createAuditLog,
		a.ID, a.OrgID, a.UserID, a.Action, a.Resource, a.Outcome, a.IP, a.Metadata, createdAt)
	return err
}
