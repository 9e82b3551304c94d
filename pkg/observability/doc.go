// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown.
//
// The Logger wraps slog with a JSON handler; FromContext stitches the
// request ID and principal onto every line so log output lines up with
// the security event trail. Metrics cover HTTP traffic plus the
// authorization-specific counters: decisions by resource and outcome,
// cross-tenant attempts, invariant violations, login failures and
// lockouts, and active sessions.
//
// The health checker pings the business database, the audit database,
// and Redis separately; a dead audit handle marks the service unhealthy
// because denials would stop being recorded.
package observability
