package tenancy

import (
	"errors"
	"time"
)

// PlanTier represents subscription plan tiers
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// OrgStatus represents organization status
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
	OrgStatusClosed    OrgStatus = "closed"
)

// OrgRole controls administrative capability within a tenant
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// orgRoleRank orders org roles for dominance checks. Higher dominates lower.
var orgRoleRank = map[OrgRole]int{
	OrgRoleMember: 1,
	OrgRoleAdmin:  2,
	OrgRoleOwner:  3,
}

// Valid reports whether the role is a known org role
func (r OrgRole) Valid() bool {
	_, ok := orgRoleRank[r]
	return ok
}

// Dominates reports whether r may grant or revoke other.
// Equal roles dominate each other except owner grants, which require owner.
func (r OrgRole) Dominates(other OrgRole) bool {
	return orgRoleRank[r] >= orgRoleRank[other]
}

// IsAdmin reports whether the role carries tenant-admin capability
func (r OrgRole) IsAdmin() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

// WorkflowRole controls business-process capability within a tenant
type WorkflowRole string

const (
	WorkflowRoleSubmitter    WorkflowRole = "submitter"
	WorkflowRoleReviewer     WorkflowRole = "reviewer"
	WorkflowRoleApprover     WorkflowRole = "approver"
	WorkflowRoleStoreManager WorkflowRole = "store_manager"
	WorkflowRoleSuperAdmin   WorkflowRole = "super_admin"
)

// Valid reports whether the role is a known workflow role
func (r WorkflowRole) Valid() bool {
	switch r {
	case WorkflowRoleSubmitter, WorkflowRoleReviewer, WorkflowRoleApprover,
		WorkflowRoleStoreManager, WorkflowRoleSuperAdmin:
		return true
	}
	return false
}

// Organization represents a tenant. All business data is partitioned by
// organization; an organization is created once and never hard-deleted
// while active data exists.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	PlanTier  PlanTier  `json:"plan_tier"`
	Status    OrgStatus `json:"status"`
	MaxUsers  int       `json:"max_users"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership binds a principal to an organization. At most one membership
// row exists per (organization, user) pair; removal deactivates the row
// rather than deleting it.
type Membership struct {
	ID             int64        `json:"id"`
	OrganizationID int64        `json:"organization_id"`
	UserID         int64        `json:"user_id"`
	OrgRole        OrgRole      `json:"org_role"`
	WorkflowRole   WorkflowRole `json:"workflow_role"`
	IsActive       bool         `json:"is_active"`
	InvitedBy      *int64       `json:"invited_by,omitempty"`
	AcceptedAt     *time.Time   `json:"accepted_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PlatformAdmin is an allow-listed principal with cross-tenant visibility,
// independent of any membership.
type PlatformAdmin struct {
	ID                    int64      `json:"id"`
	UserID                int64      `json:"user_id"`
	IPAllowList           []string   `json:"ip_allow_list,omitempty"`
	SessionTimeoutMinutes int        `json:"session_timeout_minutes"`
	IsActive              bool       `json:"is_active"`
	LockedUntil           *time.Time `json:"locked_until,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// AllowsIP reports whether the admin may authenticate from ip.
// An empty allow-list permits any address.
func (a *PlatformAdmin) AllowsIP(ip string) bool {
	if len(a.IPAllowList) == 0 {
		return true
	}
	for _, allowed := range a.IPAllowList {
		if allowed == ip {
			return true
		}
	}
	return false
}

// RoleSet is the resolved effective role pair for a (principal, tenant)
type RoleSet struct {
	OrgRole      OrgRole      `json:"org_role"`
	WorkflowRole WorkflowRole `json:"workflow_role"`
}

var (
	// ErrNoMembership is returned when no active membership exists for a
	// (principal, tenant) pair. Callers must treat it as zero privilege,
	// never as an implicit default role.
	ErrNoMembership = errors.New("tenancy: no active membership")

	// ErrOrgNotFound is returned when an organization does not exist
	ErrOrgNotFound = errors.New("tenancy: organization not found")

	// ErrMemberExists is returned when a membership already exists for the pair
	ErrMemberExists = errors.New("tenancy: membership already exists")

	// ErrRoleNotDominated is returned when a grantor attempts to grant or
	// change a role their own role does not dominate
	ErrRoleNotDominated = errors.New("tenancy: grantor role does not dominate granted role")

	// ErrInvalidRole is returned for unknown role values
	ErrInvalidRole = errors.New("tenancy: invalid role")
)
