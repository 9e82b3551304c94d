// Package config loads application configuration from REQUISIFY_*
// environment variables and validates it at startup.
//
// The token secret has no default and must be at least 32 bytes. The
// audit database URL is optional; when set, security events are written
// over their own connection pool so a saturated business pool cannot
// starve them.
package config
