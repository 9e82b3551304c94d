package secaudit

import (
	"time"
)

// EventType categorizes an authorization-relevant occurrence
type EventType string

const (
	EventCrossTenantRead     EventType = "cross_tenant_read"
	EventCrossTenantWrite    EventType = "cross_tenant_write"
	EventInvariantViolation  EventType = "invariant_violation"
	EventAccessDeniedWrite   EventType = "access_denied_write"
	EventLoginFailed         EventType = "login_failed"
	EventLoginLocked         EventType = "login_locked"
	EventPlatformAdminAccess EventType = "platform_admin_access"
	EventRoleChange          EventType = "role_change"
	EventForceRefresh        EventType = "force_refresh"
)

// Severity grades an event. Retention and alerting depend on it.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is an append-only record of an authorization-relevant occurrence.
// Events are created by the Recorder and never updated.
type Event struct {
	ID           int64     `json:"id"`
	Type         EventType `json:"type"`
	Severity     Severity  `json:"severity"`
	UserID       *int64    `json:"user_id,omitempty"`
	ClaimedOrgID *int64    `json:"claimed_org_id,omitempty"`
	TargetOrgID  *int64    `json:"target_org_id,omitempty"`
	Resource     string    `json:"resource,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Blocked      bool      `json:"blocked"`
	Detail       string    `json:"detail,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter selects events for listing
type Filter struct {
	Types    []EventType
	Severity *Severity
	UserID   *int64
	OrgID    *int64
	Since    *time.Time
	Until    *time.Time
	Blocked  *bool
	Limit    int
	Offset   int
}

// SeverityCounts aggregates events by severity over a window
type SeverityCounts struct {
	Info     int64 `json:"info"`
	Warning  int64 `json:"warning"`
	Critical int64 `json:"critical"`
}

// Total returns the sum across severities
func (c SeverityCounts) Total() int64 {
	return c.Info + c.Warning + c.Critical
}

// PrincipalAttempts counts cross-tenant attempts for one principal
type PrincipalAttempts struct {
	UserID   int64     `json:"user_id"`
	Attempts int64     `json:"attempts"`
	LastSeen time.Time `json:"last_seen"`
}

// AlertLevel grades the output of CheckAlerts
type AlertLevel string

const (
	AlertOK       AlertLevel = "ok"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert is a threshold breach with a human-readable action item. Intended
// to be polled by an external scheduler, not self-triggering.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
	Action  string     `json:"action"`
}

// RetentionPolicy holds severity-dependent retention windows
type RetentionPolicy struct {
	Info     time.Duration
	Warning  time.Duration
	Critical time.Duration
}

// DefaultRetentionPolicy keeps info 30d, warning 90d, critical 365d
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		Info:     30 * 24 * time.Hour,
		Warning:  90 * 24 * time.Hour,
		Critical: 365 * 24 * time.Hour,
	}
}

// Thresholds drive CheckAlerts
type Thresholds struct {
	// CrossTenantPerHour is the critical threshold for cross-tenant
	// attempts in the rolling window
	CrossTenantPerHour int64

	// DeniedWritesPerHour is the warning threshold for rejected writes
	DeniedWritesPerHour int64
}

// DefaultThresholds returns the standing alert thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		CrossTenantPerHour:  3,
		DeniedWritesPerHour: 10,
	}
}
