// Package secaudit records and aggregates authorization-relevant events.
//
// # Recording
//
// Events are append-only: created by a Recorder, never updated, pruned only
// by the severity-dependent retention sweep. The DBRecorder is a narrowly
// scoped trusted subsystem: it runs on its own database handle with its own
// write deadline, detached from caller cancellation, so a denied operation
// still gets logged. It is not a general privilege escalation; the handle
// can only append to security_events.
//
// # Monitoring
//
// The Monitor answers aggregate questions (counts by severity, cross-tenant
// attempts by principal) and evaluates fixed thresholds: three or more
// cross-tenant attempts per hour or any invariant violation is critical,
// ten or more denied writes per hour is a warning. CheckAlerts is polled by
// an external scheduler.
package secaudit
