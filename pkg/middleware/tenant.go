package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/contextkeys"
	"github.com/requisify/requisify/pkg/secaudit"
	"github.com/requisify/requisify/pkg/tenancy"
)

// TenantMiddleware resolves the organization named in the route and
// enforces that the caller's claims actually cover it. A routed tenant
// that the token does not cover is treated as nonexistent on reads and
// rejected outright on writes; either way the attempt is recorded.
type TenantMiddleware struct {
	directory tenancy.Directory
	recorder  secaudit.Recorder
}

// NewTenantMiddleware creates the tenant-scoping middleware
func NewTenantMiddleware(directory tenancy.Directory, recorder secaudit.Recorder) *TenantMiddleware {
	return &TenantMiddleware{
		directory: directory,
		recorder:  recorder,
	}
}

// Handler wraps an HTTP handler with tenant resolution and matching
func (m *TenantMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org, err := m.resolveOrg(r)
		if err != nil {
			if errors.Is(err, errBadOrgID) {
				http.Error(w, "Invalid organization ID", http.StatusBadRequest)
				return
			}
			http.Error(w, "Organization not found", http.StatusNotFound)
			return
		}
		if org == nil {
			// Route carries no tenant; nothing to enforce
			next.ServeHTTP(w, r)
			return
		}

		c := ClaimsFromContext(r)
		if !m.covers(c, org.ID, r.Method) {
			m.recordMismatch(r, c, org.ID)
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				// Reads fail silently: same answer as for a tenant
				// that does not exist
				http.Error(w, "Organization not found", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"forbidden","message":"organization not covered by token"}`))
			return
		}

		ctx := contextkeys.WithOrg(r.Context(), org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var errBadOrgID = errors.New("invalid organization id")

func (m *TenantMiddleware) resolveOrg(r *http.Request) (*tenancy.Organization, error) {
	vars := mux.Vars(r)
	if orgIDStr, ok := vars["org_id"]; ok {
		orgID, err := strconv.ParseInt(orgIDStr, 10, 64)
		if err != nil {
			return nil, errBadOrgID
		}
		return m.directory.GetOrganization(r.Context(), orgID)
	}
	if orgSlug, ok := vars["org_slug"]; ok {
		return m.directory.GetOrganizationBySlug(r.Context(), orgSlug)
	}
	return nil, nil
}

// covers reports whether the claims grant access to the routed tenant.
// Platform admins may read any tenant; their writes go through the same
// gate as everyone else's and must carry a matching tenant, which for
// business resources they never have.
func (m *TenantMiddleware) covers(c *claims.Claims, orgID int64, method string) bool {
	if c == nil {
		return false
	}
	if c.InTenant(orgID) {
		return true
	}
	if c.IsPlatformAdmin && (method == http.MethodGet || method == http.MethodHead) {
		return true
	}
	return false
}

func (m *TenantMiddleware) recordMismatch(r *http.Request, c *claims.Claims, targetOrgID int64) {
	if m.recorder == nil {
		return
	}
	event := &secaudit.Event{
		TargetOrgID: &targetOrgID,
		Blocked:     true,
		Detail:      r.Method + " " + r.URL.Path,
		IPAddress:   r.RemoteAddr,
		RequestID:   contextkeys.GetRequestID(r.Context()),
	}
	if c != nil {
		userID := c.UserID
		event.UserID = &userID
		event.ClaimedOrgID = c.TenantID
	}
	// Cross-tenant attempts are critical regardless of direction; only
	// the response differs (reads fail silently, writes loudly)
	event.Severity = secaudit.SeverityCritical
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		event.Type = secaudit.EventCrossTenantRead
	} else {
		event.Type = secaudit.EventCrossTenantWrite
	}
	// Best effort; the denial stands regardless
	_ = m.recorder.Record(r.Context(), event)
}

// OrgFromContext retrieves the routed organization, nil when absent
func OrgFromContext(r *http.Request) *tenancy.Organization {
	org, _ := r.Context().Value(contextkeys.OrgKey).(*tenancy.Organization)
	return org
}
