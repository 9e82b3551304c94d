package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/contextkeys"
	"github.com/requisify/requisify/pkg/httputil"
	"github.com/requisify/requisify/pkg/middleware"
	"github.com/requisify/requisify/pkg/observability"
	"github.com/requisify/requisify/pkg/secaudit"
	"github.com/requisify/requisify/pkg/tenancy"
)

// MemberHandlers handles membership requests inside a tenant. Every role
// change bumps the target's token version so outstanding tokens carrying
// the old roles stop verifying.
type MemberHandlers struct {
	directory tenancy.Directory
	versions  *claims.VersionStore
	recorder  secaudit.Recorder
	metrics   *observability.Metrics
}

// NewMemberHandlers creates a new member handlers instance
func NewMemberHandlers(directory tenancy.Directory, versions *claims.VersionStore, recorder secaudit.Recorder, metrics *observability.Metrics) *MemberHandlers {
	return &MemberHandlers{
		directory: directory,
		versions:  versions,
		recorder:  recorder,
		metrics:   metrics,
	}
}

// RegisterRoutes registers membership routes on the tenant-scoped router
func (h *MemberHandlers) RegisterRoutes(tenantScoped *mux.Router) {
	tenantScoped.HandleFunc("/members", h.listMembers).Methods("GET")
	tenantScoped.HandleFunc("/members", h.grantMember).Methods("POST")
	tenantScoped.HandleFunc("/members/{user_id}", h.changeRoles).Methods("PUT")
	tenantScoped.HandleFunc("/members/{user_id}", h.revokeMember).Methods("DELETE")
}

// listMembers handles GET /orgs/{org_id}/members
func (h *MemberHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	org := middleware.OrgFromContext(r)
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	members, err := h.directory.ListMemberships(r.Context(), org.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}

// grantMember handles POST /orgs/{org_id}/members
func (h *MemberHandlers) grantMember(w http.ResponseWriter, r *http.Request) {
	org, c, ok := h.requireTenant(w, r)
	if !ok {
		return
	}

	var req grantMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	grantorID := c.UserID
	m := &tenancy.Membership{
		OrganizationID: org.ID,
		UserID:         req.UserID,
		OrgRole:        req.OrgRole,
		WorkflowRole:   req.WorkflowRole,
		InvitedBy:      &grantorID,
	}
	if err := h.directory.GrantMembership(r.Context(), grantorID, m); err != nil {
		h.writeMemberError(w, r, c, org.ID, err)
		return
	}

	h.afterRoleChange(r, c, org.ID, req.UserID, "granted "+string(req.OrgRole)+"/"+string(req.WorkflowRole))
	httputil.WriteCreated(w, m)
}

// changeRoles handles PUT /orgs/{org_id}/members/{user_id}
func (h *MemberHandlers) changeRoles(w http.ResponseWriter, r *http.Request) {
	org, c, ok := h.requireTenant(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	var req changeRolesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.directory.ChangeMemberRoles(r.Context(), c.UserID, org.ID, userID, req.OrgRole, req.WorkflowRole)
	if err != nil {
		h.writeMemberError(w, r, c, org.ID, err)
		return
	}

	h.afterRoleChange(r, c, org.ID, userID, "changed to "+string(req.OrgRole)+"/"+string(req.WorkflowRole))

	updated, err := h.directory.GetMembership(r.Context(), org.ID, userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// revokeMember handles DELETE /orgs/{org_id}/members/{user_id}
func (h *MemberHandlers) revokeMember(w http.ResponseWriter, r *http.Request) {
	org, c, ok := h.requireTenant(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.directory.RevokeMembership(r.Context(), c.UserID, org.ID, userID); err != nil {
		h.writeMemberError(w, r, c, org.ID, err)
		return
	}

	h.afterRoleChange(r, c, org.ID, userID, "membership revoked")
	httputil.WriteNoContent(w)
}

func (h *MemberHandlers) requireTenant(w http.ResponseWriter, r *http.Request) (*tenancy.Organization, *claims.Claims, bool) {
	org := middleware.OrgFromContext(r)
	c := middleware.ClaimsFromContext(r)
	if org == nil || c == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return nil, nil, false
	}
	return org, c, true
}

// afterRoleChange records the change and forces the target principal's
// outstanding tokens to refresh. Both are best effort: the grant itself
// already committed.
func (h *MemberHandlers) afterRoleChange(r *http.Request, c *claims.Claims, orgID, targetUserID int64, detail string) {
	grantorID := c.UserID
	if h.recorder != nil {
		_ = h.recorder.Record(r.Context(), &secaudit.Event{
			Type:        secaudit.EventRoleChange,
			Severity:    secaudit.SeverityInfo,
			UserID:      &grantorID,
			TargetOrgID: &orgID,
			Resource:    "membership",
			Detail:      detail,
			IPAddress:   r.RemoteAddr,
			RequestID:   contextkeys.GetRequestID(r.Context()),
		})
	}
	if h.versions != nil {
		if _, err := h.versions.Bump(r.Context(), targetUserID); err == nil {
			if h.metrics != nil {
				h.metrics.ForcedRefreshTotal.Inc()
			}
			if h.recorder != nil {
				_ = h.recorder.Record(r.Context(), &secaudit.Event{
					Type:        secaudit.EventForceRefresh,
					Severity:    secaudit.SeverityInfo,
					UserID:      &targetUserID,
					TargetOrgID: &orgID,
					Detail:      "token version bumped after role change",
					RequestID:   contextkeys.GetRequestID(r.Context()),
				})
			}
		}
	}
}

func (h *MemberHandlers) writeMemberError(w http.ResponseWriter, r *http.Request, c *claims.Claims, orgID int64, err error) {
	switch {
	case errors.Is(err, tenancy.ErrRoleNotDominated):
		h.recordDeniedGrant(r, c, orgID)
		httputil.WriteForbidden(w, "your role does not permit granting this role")
	case errors.Is(err, tenancy.ErrNoMembership):
		httputil.WriteNotFoundError(w, "membership not found")
	case errors.Is(err, tenancy.ErrMemberExists):
		httputil.WriteConflict(w, "user is already a member")
	case errors.Is(err, tenancy.ErrInvalidRole):
		httputil.WriteBadRequest(w, "invalid role")
	default:
		httputil.WriteInternalError(w, err)
	}
}

func (h *MemberHandlers) recordDeniedGrant(r *http.Request, c *claims.Claims, orgID int64) {
	if h.recorder == nil {
		return
	}
	userID := c.UserID
	_ = h.recorder.Record(r.Context(), &secaudit.Event{
		Type:         secaudit.EventAccessDeniedWrite,
		Severity:     secaudit.SeverityWarning,
		UserID:       &userID,
		ClaimedOrgID: c.TenantID,
		TargetOrgID:  &orgID,
		Resource:     "membership",
		Blocked:      true,
		Detail:       r.Method + " " + r.URL.Path,
		IPAddress:    r.RemoteAddr,
		RequestID:    contextkeys.GetRequestID(r.Context()),
	})
}
