package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/httputil"
	"github.com/requisify/requisify/pkg/observability"
	"github.com/requisify/requisify/pkg/secaudit"
	"github.com/requisify/requisify/pkg/session"
	"github.com/requisify/requisify/pkg/tenancy"
)

// SessionIDHeader names the session on refresh, tenant selection, and
// logout requests
const SessionIDHeader = "X-Session-ID"

// AuthHandlers handles login, token refresh, tenant selection, and logout
type AuthHandlers struct {
	verifier  CredentialVerifier
	limiter   *session.LoginLimiter
	sessions  session.Store
	minter    *claims.Minter
	codec     *claims.TokenCodec
	directory tenancy.Directory
	recorder  secaudit.Recorder
	metrics   *observability.Metrics
	tokenTTL  time.Duration
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(verifier CredentialVerifier, limiter *session.LoginLimiter, sessions session.Store, minter *claims.Minter, codec *claims.TokenCodec, directory tenancy.Directory, recorder secaudit.Recorder, metrics *observability.Metrics, tokenTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		verifier:  verifier,
		limiter:   limiter,
		sessions:  sessions,
		minter:    minter,
		codec:     codec,
		directory: directory,
		recorder:  recorder,
		metrics:   metrics,
		tokenTTL:  tokenTTL,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.login).Methods("POST")
	router.HandleFunc("/auth/refresh", h.refresh).Methods("POST")
	router.HandleFunc("/auth/logout", h.logout).Methods("POST")
	router.HandleFunc("/auth/orgs/{org_id}/select", h.selectOrg).Methods("POST")
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	ip := clientIP(r)
	ctx := r.Context()

	status, err := h.limiter.Check(ctx, req.Email, ip)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if status.Locked {
		h.countLogin("locked")
		writeLocked(w, status)
		return
	}

	userID, err := h.verifier.Verify(ctx, req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, ErrBadCredentials) {
			httputil.WriteInternalError(w, err)
			return
		}
		h.countLogin("failed")
		status, rlErr := h.limiter.RecordFailure(ctx, req.Email, ip)
		if rlErr != nil {
			httputil.WriteInternalError(w, rlErr)
			return
		}
		if status.Locked {
			if h.metrics != nil {
				h.metrics.LoginLockoutsTotal.Inc()
			}
			writeLocked(w, status)
			return
		}
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	if err := h.limiter.RecordSuccess(ctx, req.Email, ip); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	h.countLogin("succeeded")

	// Platform admins get the tighter session rules from their
	// allow-list record: restricted source addresses and a shorter
	// session lifetime.
	var sessionTTL time.Duration
	admin, err := h.directory.GetPlatformAdmin(ctx, userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if admin != nil {
		if !admin.AllowsIP(ip) {
			h.recordAdminAccess(ctx, userID, ip, true,
				"platform admin login from address outside allow-list")
			httputil.WriteForbidden(w, "address not permitted")
			return
		}
		if admin.SessionTimeoutMinutes > 0 {
			sessionTTL = time.Duration(admin.SessionTimeoutMinutes) * time.Minute
		}
		h.recordAdminAccess(ctx, userID, ip, false, "platform admin login")
	}

	sess, err := h.sessions.Create(ctx, userID, ip, sessionTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// First login in this session: default to the earliest-joined tenant.
	// A principal with no memberships still gets a token; it just opens
	// no tenant doors.
	c, err := h.minter.MintFirstLogin(ctx, userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if c.TenantID != nil {
		if sess, err = h.sessions.SelectOrg(ctx, sess.ID, *c.TenantID); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	h.writeToken(w, r, http.StatusOK, c, sess, "login")
}

// refresh handles POST /auth/refresh. Claims are re-resolved from the
// directory, never copied from the old token, so revoked roles disappear
// here.
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	c, err := h.minter.Mint(r.Context(), sess.UserID, sess.SelectedOrgID)
	if err != nil {
		if errors.Is(err, claims.ErrNotAMember) {
			// Membership revoked since selection; fall back to no tenant
			c, err = h.minter.Mint(r.Context(), sess.UserID, nil)
		}
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	if _, err := h.sessions.Touch(r.Context(), sess.ID, 0); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.writeToken(w, r, http.StatusOK, c, sess, "refresh")
}

// selectOrg handles POST /auth/orgs/{org_id}/select. Switching tenants
// re-resolves roles; a tenant the principal does not belong to is refused
// outright.
func (h *AuthHandlers) selectOrg(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	c, err := h.minter.Mint(r.Context(), sess.UserID, &orgID)
	if err != nil {
		if errors.Is(err, claims.ErrNotAMember) {
			httputil.WriteForbidden(w, "not a member of this organization")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	sess, err = h.sessions.SelectOrg(r.Context(), sess.ID, orgID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.writeToken(w, r, http.StatusOK, c, sess, "select_org")
}

// logout handles POST /auth/logout
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		httputil.WriteBadRequest(w, "missing session header")
		return
	}
	if err := h.sessions.Invalidate(r.Context(), sessionID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AuthHandlers) requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		httputil.WriteUnauthorized(w, "missing session header")
		return nil, false
	}
	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			httputil.WriteUnauthorized(w, "session expired or unknown")
			return nil, false
		}
		httputil.WriteInternalError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *AuthHandlers) writeToken(w http.ResponseWriter, r *http.Request, status int, c *claims.Claims, sess *session.Session, reason string) {
	token, err := h.codec.Encode(r.Context(), c)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.TokensMintedTotal.WithLabelValues(reason).Inc()
	}

	resp := tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenTTL),
		Claims:    summarize(c),
	}
	if sess != nil {
		resp.SessionID = sess.ID
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *AuthHandlers) recordAdminAccess(ctx context.Context, userID int64, ip string, blocked bool, detail string) {
	if h.recorder == nil {
		return
	}
	severity := secaudit.SeverityInfo
	if blocked {
		severity = secaudit.SeverityWarning
	}
	// Best effort; the login outcome is already decided
	_ = h.recorder.Record(ctx, &secaudit.Event{
		Type:      secaudit.EventPlatformAdminAccess,
		Severity:  severity,
		UserID:    &userID,
		Blocked:   blocked,
		Detail:    detail,
		IPAddress: ip,
	})
}

func (h *AuthHandlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

func summarize(c *claims.Claims) claimsSummary {
	s := claimsSummary{
		UserID:          c.UserID,
		TenantID:        c.TenantID,
		IsPlatformAdmin: c.IsPlatformAdmin,
	}
	if c.OrgRole != nil {
		role := string(*c.OrgRole)
		s.OrgRole = &role
	}
	if c.WorkflowRole != nil {
		role := string(*c.WorkflowRole)
		s.WorkflowRole = &role
	}
	return s
}

func writeLocked(w http.ResponseWriter, status *session.RateLimitStatus) {
	w.Header().Set("Content-Type", "application/json")
	if status.LockedUntil != nil {
		w.Header().Set("Retry-After", status.LockedUntil.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	body := map[string]interface{}{
		"error":  "account temporarily locked",
		"locked": true,
	}
	if status.LockedUntil != nil {
		body["locked_until"] = status.LockedUntil
	}
	json.NewEncoder(w).Encode(body)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
