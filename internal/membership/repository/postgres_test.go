package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"org-credential-broker/internal/membership/domain"
)

var membershipColumns = []string{"id", "user_id", "org_id", "role", "created_at"}

func TestGetMembershipByUserAndOrg_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM memberships")).
		WithArgs("user-1", "org-1").
		WillReturnRows(pgxmock.NewRows(membershipColumns).AddRow("m-1", "user-1", "org-1", "admin", created))

	repo := NewPostgresRepository(mock)
	m, err := repo.GetMembershipByUserAndOrg(context.Background(), "user-1", "org-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "m-1", m.ID)
	assert.Equal(t, domain.RoleAdmin, m.Role)
	assert.Equal(t, created, m.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipByUserAndOrg_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM memberships")).
		WithArgs("user-1", "org-2").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)
	m, err := repo.GetMembershipByUserAndOrg(context.Background(), "user-1", "org-2")
	assert.NoError(t, err)
	assert.Nil(t, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipByUserAndOrg_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM memberships")).
		WithArgs("user-1", "org-1").
		WillReturnError(dbErr)

	repo := NewPostgresRepository(mock)
	m, err := repo.GetMembershipByUserAndOrg(context.Background(), "user-1", "org-1")
	assert.ErrorIs(t, err, dbErr)
	assert.Nil(t, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMembership(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs("m-1", "org-1", "user-1", "owner", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresRepository(mock)
	err = repo.CreateMembership(context.Background(), &domain.Membership{
		ID: "m-1", OrgID: "org-1", UserID: "user-1", Role: domain.RoleOwner, CreatedAt: created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
