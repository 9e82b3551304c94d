package claims

import (
	"errors"

	"github.com/requisify/requisify/pkg/tenancy"
)

// Claims are the authorization-relevant fields embedded in a session token.
// They are a snapshot of membership state at mint time and may go stale
// until the token is refreshed; that window is bounded by the token TTL.
//
// All four fields form the stable token contract. An absent TenantID means
// zero tenant-scoped access, never "all access" or a guessed tenant.
type Claims struct {
	TenantID        *int64                `json:"tenant_id"`
	OrgRole         *tenancy.OrgRole      `json:"org_role"`
	WorkflowRole    *tenancy.WorkflowRole `json:"workflow_role"`
	IsPlatformAdmin bool                  `json:"is_platform_admin"`

	// UserID identifies the principal the claims were minted for
	UserID int64 `json:"user_id"`
}

// HasTenant reports whether the claims carry a tenant
func (c *Claims) HasTenant() bool {
	return c != nil && c.TenantID != nil
}

// InTenant reports whether the claims are scoped to the given tenant
func (c *Claims) InTenant(orgID int64) bool {
	return c.HasTenant() && *c.TenantID == orgID
}

// IsOrgAdmin reports whether the claims carry tenant-admin capability
func (c *Claims) IsOrgAdmin() bool {
	return c != nil && c.OrgRole != nil && c.OrgRole.IsAdmin()
}

// IsWorkflowSuperAdmin reports whether the workflow role is super_admin
func (c *Claims) IsWorkflowSuperAdmin() bool {
	return c != nil && c.WorkflowRole != nil && *c.WorkflowRole == tenancy.WorkflowRoleSuperAdmin
}

var (
	// ErrNotAMember is returned when a tenant is explicitly requested at
	// mint time but the principal holds no active membership in it
	ErrNotAMember = errors.New("claims: principal is not a member of requested tenant")

	// ErrTokenInvalid is returned for malformed, mis-signed or expired tokens
	ErrTokenInvalid = errors.New("claims: invalid token")

	// ErrTokenSuperseded is returned when a token's version predates a
	// forced refresh for the principal
	ErrTokenSuperseded = errors.New("claims: token superseded by forced refresh")
)
