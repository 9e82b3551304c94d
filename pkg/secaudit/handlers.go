package secaudit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/requisify/requisify/pkg/httputil"
)

// Handlers provides the security-event HTTP API. All routes are
// platform-admin only; the claims check lives in the middleware wired in
// front of the router, not here.
type Handlers struct {
	recorder *DBRecorder
	monitor  *Monitor
}

// NewHandlers creates security event handlers
func NewHandlers(recorder *DBRecorder, monitor *Monitor) *Handlers {
	return &Handlers{recorder: recorder, monitor: monitor}
}

// RegisterRoutes registers security event routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/security/events", h.listEvents).Methods("GET")
	router.HandleFunc("/security/stats", h.getStats).Methods("GET")
	router.HandleFunc("/security/cross-tenant", h.getCrossTenantAttempts).Methods("GET")
	router.HandleFunc("/security/alerts", h.getAlerts).Methods("GET")
}

// listEvents handles GET /security/events
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)

	events, err := h.recorder.List(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// getStats handles GET /security/stats
func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, 24*time.Hour)

	counts, err := h.recorder.CountBySeverity(r.Context(), window)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"window_hours": int(window.Hours()),
		"by_severity":  counts,
		"total":        counts.Total(),
	})
}

// getCrossTenantAttempts handles GET /security/cross-tenant
func (h *Handlers) getCrossTenantAttempts(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, time.Hour)

	attempts, err := h.recorder.CrossTenantAttemptsByUser(r.Context(), window)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"window_hours": int(window.Hours()),
		"attempts":     attempts,
	})
}

// getAlerts handles GET /security/alerts
func (h *Handlers) getAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.monitor.CheckAlerts(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"alerts": alerts})
}

func parseFilter(r *http.Request) Filter {
	q := r.URL.Query()
	filter := Filter{Limit: 100}

	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 1000 {
			filter.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if v := q.Get("severity"); v != "" {
		severity := Severity(v)
		filter.Severity = &severity
	}
	if v := q.Get("type"); v != "" {
		filter.Types = []EventType{EventType(v)}
	}
	if v := q.Get("user_id"); v != "" {
		if userID, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.UserID = &userID
		}
	}
	if v := q.Get("org_id"); v != "" {
		if orgID, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.OrgID = &orgID
		}
	}
	if v := q.Get("since"); v != "" {
		if since, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &since
		}
	}
	return filter
}

func parseWindow(r *http.Request, fallback time.Duration) time.Duration {
	if v := r.URL.Query().Get("hours"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 && hours <= 24*30 {
			return time.Duration(hours) * time.Hour
		}
	}
	return fallback
}
