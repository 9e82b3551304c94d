package tenancy

import (
	"context"
	"database/sql"
	"fmt"
)

const membershipColumns = `id, organization_id, user_id, org_role, workflow_role, is_active, invited_by, accepted_at, created_at, updated_at`

// GetMembership retrieves the active membership for a (tenant, principal)
// pair. Returns ErrNoMembership when none exists.
func (d *PostgresDirectory) GetMembership(ctx context.Context, orgID, userID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE organization_id = $1 AND user_id = $2 AND is_active = TRUE
	`
	return d.scanMembership(d.db.QueryRowContext(ctx, query, orgID, userID))
}

// ListMemberships lists active memberships of an organization, earliest joined first
func (d *PostgresDirectory) ListMemberships(ctx context.Context, orgID int64) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE organization_id = $1 AND is_active = TRUE
		ORDER BY accepted_at ASC NULLS LAST, created_at ASC
	`
	return d.queryMemberships(ctx, query, orgID)
}

// ListUserMemberships lists a principal's active memberships across all
// organizations, earliest joined first. The first entry is the working
// default tenant at first login.
func (d *PostgresDirectory) ListUserMemberships(ctx context.Context, userID int64) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY accepted_at ASC NULLS LAST, created_at ASC
	`
	return d.queryMemberships(ctx, query, userID)
}

// GrantMembership creates a membership. The grantor's own resolved org role
// must dominate the granted org role; an admin cannot grant owner.
func (d *PostgresDirectory) GrantMembership(ctx context.Context, grantorID int64, m *Membership) error {
	if !m.OrgRole.Valid() || !m.WorkflowRole.Valid() {
		return ErrInvalidRole
	}
	if err := d.checkDominance(ctx, grantorID, m.OrganizationID, m.OrgRole); err != nil {
		return err
	}

	// Revocation deactivates rather than deletes, so re-inviting a
	// removed member reactivates the row; an active membership still
	// conflicts.
	query := `
		INSERT INTO memberships (organization_id, user_id, org_role, workflow_role, is_active, invited_by, accepted_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, NOW())
		ON CONFLICT (organization_id, user_id) DO UPDATE
		SET is_active = TRUE, org_role = EXCLUDED.org_role,
			workflow_role = EXCLUDED.workflow_role,
			invited_by = EXCLUDED.invited_by,
			accepted_at = NOW(), updated_at = NOW()
		WHERE memberships.is_active = FALSE
		RETURNING id, created_at, updated_at
	`
	err := d.db.QueryRowContext(ctx, query,
		m.OrganizationID, m.UserID, m.OrgRole, m.WorkflowRole, m.InvitedBy).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrMemberExists
	}
	if err != nil {
		return fmt.Errorf("failed to grant membership: %w", err)
	}
	m.IsActive = true
	return nil
}

// BootstrapOwner installs the creating principal as owner of a brand-new
// organization. It refuses once the organization has any member, so it
// cannot be used to climb into an existing tenant.
func (d *PostgresDirectory) BootstrapOwner(ctx context.Context, orgID, userID int64) (*Membership, error) {
	query := `
		INSERT INTO memberships (organization_id, user_id, org_role, workflow_role, is_active, accepted_at)
		SELECT $1, $2, $3, $4, TRUE, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM memberships WHERE organization_id = $1
		)
		RETURNING ` + membershipColumns + `
	`
	m, err := d.scanMembership(d.db.QueryRowContext(ctx, query,
		orgID, userID, OrgRoleOwner, WorkflowRoleSuperAdmin))
	if err == ErrNoMembership {
		return nil, ErrMemberExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap owner: %w", err)
	}
	return m, nil
}

// ChangeMemberRoles updates a member's role pair, subject to dominance over
// both the member's current org role and the new one.
func (d *PostgresDirectory) ChangeMemberRoles(ctx context.Context, grantorID, orgID, userID int64, orgRole OrgRole, workflowRole WorkflowRole) error {
	if !orgRole.Valid() || !workflowRole.Valid() {
		return ErrInvalidRole
	}
	current, err := d.GetMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if err := d.checkDominance(ctx, grantorID, orgID, orgRole); err != nil {
		return err
	}
	if err := d.checkDominance(ctx, grantorID, orgID, current.OrgRole); err != nil {
		return err
	}

	query := `
		UPDATE memberships
		SET org_role = $1, workflow_role = $2, updated_at = NOW()
		WHERE organization_id = $3 AND user_id = $4 AND is_active = TRUE
	`
	result, err := d.db.ExecContext(ctx, query, orgRole, workflowRole, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to change member roles: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoMembership
	}
	return nil
}

// RevokeMembership deactivates a membership. Rows are never deleted so the
// audit trail of who belonged where survives removal.
func (d *PostgresDirectory) RevokeMembership(ctx context.Context, grantorID, orgID, userID int64) error {
	current, err := d.GetMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if err := d.checkDominance(ctx, grantorID, orgID, current.OrgRole); err != nil {
		return err
	}

	query := `
		UPDATE memberships
		SET is_active = FALSE, updated_at = NOW()
		WHERE organization_id = $1 AND user_id = $2 AND is_active = TRUE
	`
	result, err := d.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke membership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoMembership
	}
	return nil
}

// checkDominance verifies the grantor's own active role in the org dominates
// the role being granted or revoked
func (d *PostgresDirectory) checkDominance(ctx context.Context, grantorID, orgID int64, granted OrgRole) error {
	grantor, err := d.GetMembership(ctx, orgID, grantorID)
	if err != nil {
		return err
	}
	if !grantor.OrgRole.IsAdmin() {
		return ErrRoleNotDominated
	}
	if granted == OrgRoleOwner && grantor.OrgRole != OrgRoleOwner {
		return ErrRoleNotDominated
	}
	if !grantor.OrgRole.Dominates(granted) {
		return ErrRoleNotDominated
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *PostgresDirectory) scanMembership(row rowScanner) (*Membership, error) {
	m := &Membership{}
	var invitedBy sql.NullInt64
	var acceptedAt sql.NullTime
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.OrgRole, &m.WorkflowRole,
		&m.IsActive, &invitedBy, &acceptedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoMembership
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}
	if invitedBy.Valid {
		v := invitedBy.Int64
		m.InvitedBy = &v
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		m.AcceptedAt = &t
	}
	return m, nil
}

func (d *PostgresDirectory) queryMemberships(ctx context.Context, query string, arg interface{}) ([]*Membership, error) {
	rows, err := d.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m, err := d.scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
