package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/contextkeys"
	"github.com/requisify/requisify/pkg/httputil"
	"github.com/requisify/requisify/pkg/middleware"
	"github.com/requisify/requisify/pkg/secaudit"
	"github.com/requisify/requisify/pkg/tenancy"
)

// OrgHandlers handles organization lifecycle requests
type OrgHandlers struct {
	directory tenancy.Directory
	recorder  secaudit.Recorder
}

// NewOrgHandlers creates a new org handlers instance
func NewOrgHandlers(directory tenancy.Directory, recorder secaudit.Recorder) *OrgHandlers {
	return &OrgHandlers{directory: directory, recorder: recorder}
}

// RegisterRoutes registers organization routes. The tenant-scoped routes
// sit behind the tenant middleware wired by the server.
func (h *OrgHandlers) RegisterRoutes(router *mux.Router, tenantScoped *mux.Router) {
	router.HandleFunc("/orgs", h.createOrganization).Methods("POST")
	router.HandleFunc("/orgs", h.listOrganizations).Methods("GET")
	tenantScoped.HandleFunc("", h.getOrganization).Methods("GET")
	tenantScoped.HandleFunc("", h.updateOrganization).Methods("PATCH")
}

// createOrganization handles POST /orgs. The creator becomes the sole
// owner of the new tenant; membership in it grants nothing anywhere else.
func (h *OrgHandlers) createOrganization(w http.ResponseWriter, r *http.Request) {
	c := middleware.ClaimsFromContext(r)
	if c == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	org := &tenancy.Organization{
		Name: req.Name,
		Slug: req.Slug,
	}
	if err := h.directory.CreateOrganization(r.Context(), org); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if _, err := h.directory.BootstrapOwner(r.Context(), org.ID, c.UserID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, org)
}

// listOrganizations handles GET /orgs. Only organizations the caller
// belongs to come back; there is no way to enumerate other tenants.
func (h *OrgHandlers) listOrganizations(w http.ResponseWriter, r *http.Request) {
	c := middleware.ClaimsFromContext(r)
	if c == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	orgs, err := h.directory.ListOrganizations(r.Context(), c.UserID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"organizations": orgs,
		"count":         len(orgs),
	})
}

// getOrganization handles GET /orgs/{org_id}
func (h *OrgHandlers) getOrganization(w http.ResponseWriter, r *http.Request) {
	org := middleware.OrgFromContext(r)
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	httputil.WriteSuccess(w, org)
}

// updateOrganization handles PATCH /orgs/{org_id}. Status and plan are
// operator controls: org admins of the tenant or platform admins only.
func (h *OrgHandlers) updateOrganization(w http.ResponseWriter, r *http.Request) {
	org := middleware.OrgFromContext(r)
	c := middleware.ClaimsFromContext(r)
	if org == nil || c == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	if !c.IsOrgAdmin() && !c.IsPlatformAdmin {
		h.recordDenied(r, c, org.ID)
		httputil.WriteForbidden(w, "organization admin required")
		return
	}

	var req updateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Status != nil {
		if err := h.directory.UpdateOrganizationStatus(r.Context(), org.ID, *req.Status); err != nil {
			h.writeOrgError(w, err)
			return
		}
	}
	if req.Plan != nil {
		if err := h.directory.UpdateOrganizationPlan(r.Context(), org.ID, *req.Plan); err != nil {
			h.writeOrgError(w, err)
			return
		}
	}

	updated, err := h.directory.GetOrganization(r.Context(), org.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (h *OrgHandlers) writeOrgError(w http.ResponseWriter, err error) {
	if errors.Is(err, tenancy.ErrOrgNotFound) {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	httputil.WriteInternalError(w, err)
}

func (h *OrgHandlers) recordDenied(r *http.Request, c *claims.Claims, targetOrgID int64) {
	if h.recorder == nil {
		return
	}
	userID := c.UserID
	_ = h.recorder.Record(r.Context(), &secaudit.Event{
		Type:         secaudit.EventAccessDeniedWrite,
		Severity:     secaudit.SeverityWarning,
		UserID:       &userID,
		ClaimedOrgID: c.TenantID,
		TargetOrgID:  &targetOrgID,
		Resource:     "organization",
		Blocked:      true,
		Detail:       r.Method + " " + r.URL.Path,
		IPAddress:    r.RemoteAddr,
		RequestID:    contextkeys.GetRequestID(r.Context()),
	})
}
