package tenancy

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDirectory(t *testing.T) (*PostgresDirectory, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresDirectory(db), mock, db
}

func membershipRows(orgID, userID int64, orgRole OrgRole, workflowRole WorkflowRole) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "organization_id", "user_id", "org_role", "workflow_role",
		"is_active", "invited_by", "accepted_at", "created_at", "updated_at",
	}).AddRow(1, orgID, userID, orgRole, workflowRole, true, nil, now, now, now)
}

func TestGetMembership(t *testing.T) {
	directory, mock, db := newMockDirectory(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("active membership found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(10)).
			WillReturnRows(membershipRows(1, 10, OrgRoleMember, WorkflowRoleSubmitter))

		m, err := directory.GetMembership(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.OrganizationID)
		assert.Equal(t, OrgRoleMember, m.OrgRole)
		assert.Equal(t, WorkflowRoleSubmitter, m.WorkflowRole)
		assert.True(t, m.IsActive)
	})

	t.Run("absent membership is ErrNoMembership, not a default role", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(99)).
			WillReturnError(sql.ErrNoRows)

		m, err := directory.GetMembership(ctx, 1, 99)
		assert.Nil(t, m)
		assert.ErrorIs(t, err, ErrNoMembership)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantMembership_DominanceEnforced(t *testing.T) {
	directory, mock, db := newMockDirectory(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("admin cannot grant owner", func(t *testing.T) {
		// grantor lookup resolves to admin
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(5)).
			WillReturnRows(membershipRows(1, 5, OrgRoleAdmin, WorkflowRoleApprover))

		err := directory.GrantMembership(ctx, 5, &Membership{
			OrganizationID: 1,
			UserID:         20,
			OrgRole:        OrgRoleOwner,
			WorkflowRole:   WorkflowRoleSubmitter,
		})
		assert.ErrorIs(t, err, ErrRoleNotDominated)
	})

	t.Run("member cannot grant anything", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(6)).
			WillReturnRows(membershipRows(1, 6, OrgRoleMember, WorkflowRoleSubmitter))

		err := directory.GrantMembership(ctx, 6, &Membership{
			OrganizationID: 1,
			UserID:         20,
			OrgRole:        OrgRoleMember,
			WorkflowRole:   WorkflowRoleSubmitter,
		})
		assert.ErrorIs(t, err, ErrRoleNotDominated)
	})

	t.Run("owner grants admin", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(7)).
			WillReturnRows(membershipRows(1, 7, OrgRoleOwner, WorkflowRoleSuperAdmin))
		mock.ExpectQuery(`INSERT INTO memberships`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(2, now, now))

		m := &Membership{
			OrganizationID: 1,
			UserID:         20,
			OrgRole:        OrgRoleAdmin,
			WorkflowRole:   WorkflowRoleReviewer,
		}
		err := directory.GrantMembership(ctx, 7, m)
		require.NoError(t, err)
		assert.Equal(t, int64(2), m.ID)
		assert.True(t, m.IsActive)
	})

	t.Run("active duplicate rejected", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(7)).
			WillReturnRows(membershipRows(1, 7, OrgRoleOwner, WorkflowRoleSuperAdmin))
		mock.ExpectQuery(`INSERT INTO memberships`).
			WillReturnError(sql.ErrNoRows)

		err := directory.GrantMembership(ctx, 7, &Membership{
			OrganizationID: 1,
			UserID:         20,
			OrgRole:        OrgRoleMember,
			WorkflowRole:   WorkflowRoleSubmitter,
		})
		assert.ErrorIs(t, err, ErrMemberExists)
	})

	t.Run("revoked member reactivates on re-grant", func(t *testing.T) {
		// The conflict clause updates the inactive row, so the insert
		// returns it instead of no rows
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(7)).
			WillReturnRows(membershipRows(1, 7, OrgRoleOwner, WorkflowRoleSuperAdmin))
		mock.ExpectQuery(`INSERT INTO memberships`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))

		m := &Membership{
			OrganizationID: 1,
			UserID:         21,
			OrgRole:        OrgRoleMember,
			WorkflowRole:   WorkflowRoleReviewer,
		}
		err := directory.GrantMembership(ctx, 7, m)
		require.NoError(t, err)
		assert.Equal(t, int64(3), m.ID)
		assert.True(t, m.IsActive)
	})

	t.Run("invalid role rejected before any query", func(t *testing.T) {
		err := directory.GrantMembership(ctx, 7, &Membership{
			OrganizationID: 1,
			UserID:         20,
			OrgRole:        OrgRole("root"),
			WorkflowRole:   WorkflowRoleSubmitter,
		})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeMembership(t *testing.T) {
	directory, mock, db := newMockDirectory(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("owner revokes member, row deactivated not deleted", func(t *testing.T) {
		// target membership
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(20)).
			WillReturnRows(membershipRows(1, 20, OrgRoleMember, WorkflowRoleSubmitter))
		// grantor membership
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(7)).
			WillReturnRows(membershipRows(1, 7, OrgRoleOwner, WorkflowRoleSuperAdmin))
		mock.ExpectExec(`UPDATE memberships\s+SET is_active = FALSE`).
			WithArgs(int64(1), int64(20)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := directory.RevokeMembership(ctx, 7, 1, 20)
		require.NoError(t, err)
	})

	t.Run("member cannot revoke admin", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(5)).
			WillReturnRows(membershipRows(1, 5, OrgRoleAdmin, WorkflowRoleApprover))
		mock.ExpectQuery(`SELECT .+ FROM memberships`).
			WithArgs(int64(1), int64(20)).
			WillReturnRows(membershipRows(1, 20, OrgRoleMember, WorkflowRoleSubmitter))

		err := directory.RevokeMembership(ctx, 20, 1, 5)
		assert.ErrorIs(t, err, ErrRoleNotDominated)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserMemberships_OrderedByJoin(t *testing.T) {
	directory, mock, db := newMockDirectory(t)
	defer db.Close()
	ctx := context.Background()

	now := time.Now()
	earlier := now.Add(-24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "user_id", "org_role", "workflow_role",
		"is_active", "invited_by", "accepted_at", "created_at", "updated_at",
	}).
		AddRow(1, 3, 10, OrgRoleMember, WorkflowRoleSubmitter, true, nil, earlier, earlier, earlier).
		AddRow(2, 9, 10, OrgRoleAdmin, WorkflowRoleApprover, true, nil, now, now, now)

	mock.ExpectQuery(`SELECT .+ FROM memberships`).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	memberships, err := directory.ListUserMemberships(ctx, 10)
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, int64(3), memberships[0].OrganizationID)
	assert.Equal(t, int64(9), memberships[1].OrganizationID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapOwner(t *testing.T) {
	directory, mock, db := newMockDirectory(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("first member becomes owner", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO memberships`).
			WithArgs(int64(5), int64(10), OrgRoleOwner, WorkflowRoleSuperAdmin).
			WillReturnRows(membershipRows(5, 10, OrgRoleOwner, WorkflowRoleSuperAdmin))

		m, err := directory.BootstrapOwner(ctx, 5, 10)
		require.NoError(t, err)
		assert.Equal(t, OrgRoleOwner, m.OrgRole)
		assert.Equal(t, WorkflowRoleSuperAdmin, m.WorkflowRole)
	})

	t.Run("refused once the organization has members", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO memberships`).
			WithArgs(int64(5), int64(11), OrgRoleOwner, WorkflowRoleSuperAdmin).
			WillReturnError(sql.ErrNoRows)

		_, err := directory.BootstrapOwner(ctx, 5, 11)
		assert.ErrorIs(t, err, ErrMemberExists)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
