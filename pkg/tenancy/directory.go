package tenancy

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Directory is the system of record for tenants, memberships and the
// platform-admin allow-list.
type Directory interface {
	// Organization lifecycle
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	ListOrganizations(ctx context.Context, userID int64) ([]*Organization, error)
	UpdateOrganizationStatus(ctx context.Context, id int64, status OrgStatus) error
	UpdateOrganizationPlan(ctx context.Context, id int64, plan PlanTier) error

	// Membership lifecycle
	GetMembership(ctx context.Context, orgID, userID int64) (*Membership, error)
	ListMemberships(ctx context.Context, orgID int64) ([]*Membership, error)
	ListUserMemberships(ctx context.Context, userID int64) ([]*Membership, error)
	GrantMembership(ctx context.Context, grantorID int64, m *Membership) error
	BootstrapOwner(ctx context.Context, orgID, userID int64) (*Membership, error)
	ChangeMemberRoles(ctx context.Context, grantorID, orgID, userID int64, orgRole OrgRole, workflowRole WorkflowRole) error
	RevokeMembership(ctx context.Context, grantorID, orgID, userID int64) error

	// Platform admin allow-list
	GetPlatformAdmin(ctx context.Context, userID int64) (*PlatformAdmin, error)
}

// PostgresDirectory implements Directory using PostgreSQL
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a new PostgresDirectory
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// CreateOrganization creates a new organization with defaults applied
func (d *PostgresDirectory) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.Slug == "" {
		org.Slug = generateSlug(org.Name)
	}
	if org.PlanTier == "" {
		org.PlanTier = PlanFree
	}
	if org.Status == "" {
		org.Status = OrgStatusActive
	}
	if org.MaxUsers == 0 {
		org.MaxUsers = defaultMaxUsers(org.PlanTier)
	}
	org.IsActive = true

	query := `
		INSERT INTO organizations (name, slug, plan_tier, status, max_users, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := d.db.QueryRowContext(ctx, query,
		org.Name, org.Slug, org.PlanTier, org.Status, org.MaxUsers, org.IsActive).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetOrganization retrieves an organization by ID
func (d *PostgresDirectory) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	return d.getOrganization(ctx, "id = $1", id)
}

// GetOrganizationBySlug retrieves an organization by slug
func (d *PostgresDirectory) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	return d.getOrganization(ctx, "slug = $1", slug)
}

func (d *PostgresDirectory) getOrganization(ctx context.Context, where string, arg interface{}) (*Organization, error) {
	query := `
		SELECT id, name, slug, plan_tier, status, max_users, is_active, created_at, updated_at
		FROM organizations
		WHERE ` + where
	org := &Organization{}
	err := d.db.QueryRowContext(ctx, query, arg).Scan(
		&org.ID, &org.Name, &org.Slug, &org.PlanTier, &org.Status,
		&org.MaxUsers, &org.IsActive, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations lists organizations the user holds an active membership in,
// ordered by when the membership was accepted
func (d *PostgresDirectory) ListOrganizations(ctx context.Context, userID int64) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.plan_tier, o.status, o.max_users, o.is_active, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1 AND m.is_active = TRUE AND o.is_active = TRUE
		ORDER BY m.accepted_at ASC NULLS LAST, m.created_at ASC
	`
	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Slug, &org.PlanTier, &org.Status,
			&org.MaxUsers, &org.IsActive, &org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// UpdateOrganizationStatus changes the lifecycle status of an organization
func (d *PostgresDirectory) UpdateOrganizationStatus(ctx context.Context, id int64, status OrgStatus) error {
	return d.updateOrg(ctx, id, "status", string(status))
}

// UpdateOrganizationPlan changes the plan tier of an organization
func (d *PostgresDirectory) UpdateOrganizationPlan(ctx context.Context, id int64, plan PlanTier) error {
	return d.updateOrg(ctx, id, "plan_tier", string(plan))
}

func (d *PostgresDirectory) updateOrg(ctx context.Context, id int64, column, value string) error {
	query := fmt.Sprintf(`UPDATE organizations SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	result, err := d.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update organization %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrgNotFound
	}
	return nil
}

// GetPlatformAdmin retrieves an active platform-admin record for the user.
// Returns sql.ErrNoRows wrapped as a nil record when the user is not
// allow-listed.
func (d *PostgresDirectory) GetPlatformAdmin(ctx context.Context, userID int64) (*PlatformAdmin, error) {
	query := `
		SELECT id, user_id, ip_allow_list, session_timeout_minutes, is_active, locked_until, created_at
		FROM platform_admins
		WHERE user_id = $1 AND is_active = TRUE
	`
	admin := &PlatformAdmin{}
	var allowList sql.NullString
	var lockedUntil sql.NullTime
	err := d.db.QueryRowContext(ctx, query, userID).Scan(
		&admin.ID, &admin.UserID, &allowList, &admin.SessionTimeoutMinutes,
		&admin.IsActive, &lockedUntil, &admin.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform admin: %w", err)
	}
	if allowList.Valid && allowList.String != "" {
		admin.IPAllowList = strings.Split(allowList.String, ",")
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		admin.LockedUntil = &t
	}
	return admin, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// generateSlug derives a URL-safe slug from an organization name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func defaultMaxUsers(plan PlanTier) int {
	switch plan {
	case PlanEnterprise:
		return 1000
	case PlanPro:
		return 100
	default:
		return 10
	}
}
