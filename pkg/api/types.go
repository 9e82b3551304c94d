package api

import (
	"context"
	"errors"
	"time"

	"github.com/requisify/requisify/pkg/tenancy"
)

// ErrBadCredentials is returned by a CredentialVerifier when the
// email/password pair does not check out. The login handler treats it as
// a counted failure; any other error is an infrastructure problem.
var ErrBadCredentials = errors.New("api: bad credentials")

// CredentialVerifier checks an email/password pair and returns the
// principal ID. Identity storage lives outside this service; the SSO or
// user-directory integration plugs in here.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (int64, error)
}

// loginRequest is the body of POST /auth/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse carries a freshly minted access token
type tokenResponse struct {
	Token     string        `json:"token"`
	SessionID string        `json:"session_id,omitempty"`
	ExpiresAt time.Time     `json:"expires_at"`
	Claims    claimsSummary `json:"claims"`
}

// claimsSummary is the decoded-claims view returned alongside tokens so
// clients can render role-appropriate UI without decoding the JWT
type claimsSummary struct {
	UserID          int64   `json:"user_id"`
	TenantID        *int64  `json:"tenant_id,omitempty"`
	OrgRole         *string `json:"org_role,omitempty"`
	WorkflowRole    *string `json:"workflow_role,omitempty"`
	IsPlatformAdmin bool    `json:"is_platform_admin"`
}

// createOrgRequest is the body of POST /orgs
type createOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// updateOrgRequest is the body of PATCH /orgs/{org_id}
type updateOrgRequest struct {
	Status *tenancy.OrgStatus `json:"status"`
	Plan   *tenancy.PlanTier  `json:"plan"`
}

// grantMemberRequest is the body of POST /orgs/{org_id}/members
type grantMemberRequest struct {
	UserID       int64                `json:"user_id"`
	OrgRole      tenancy.OrgRole      `json:"org_role"`
	WorkflowRole tenancy.WorkflowRole `json:"workflow_role"`
}

// changeRolesRequest is the body of PUT /orgs/{org_id}/members/{user_id}
type changeRolesRequest struct {
	OrgRole      tenancy.OrgRole      `json:"org_role"`
	WorkflowRole tenancy.WorkflowRole `json:"workflow_role"`
}
