// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ClaimsKey contains *claims.Claims
	// Set by: middleware.ClaimsMiddleware (pkg/middleware/claims.go)
	// Required by: policy evaluation, invariant guard, tenant middleware
	// Type: *claims.Claims
	ClaimsKey Key = "claims"

	// OrgKey contains *tenancy.Organization
	// Set by: middleware.TenantMiddleware (pkg/middleware/tenant.go)
	// Required by: tenant-scoped endpoints
	// Type: *tenancy.Organization
	OrgKey Key = "organization"

	// SessionKey contains *session.Session
	// Set by: login and refresh handlers (pkg/api)
	// Type: *session.Session
	SessionKey Key = "session"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware
	// Used by: Logger, security events
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated principal ID
	// Set by: middleware.ClaimsMiddleware after token validation
	// Type: int64
	UserIDKey Key = "user_id"
)

// WithClaims adds decoded claims to the context
func WithClaims(ctx context.Context, c interface{}) context.Context {
	return context.WithValue(ctx, ClaimsKey, c)
}

// WithOrg adds the routed organization to the context
func WithOrg(ctx context.Context, org interface{}) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}

// WithSession adds the session to the context
func WithSession(ctx context.Context, s interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds the principal ID to the context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves the principal ID from context, zero when absent
func GetUserID(ctx context.Context) int64 {
	if userID, ok := ctx.Value(UserIDKey).(int64); ok {
		return userID
	}
	return 0
}
