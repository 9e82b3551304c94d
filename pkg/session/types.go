package session

import (
	"errors"
	"time"
)

// Session is server-side login state. The selected organization recorded
// here is the only place "current tenant" lives between requests; claims
// are minted from it, never guessed elsewhere.
type Session struct {
	ID            string        `json:"id"`
	UserID        int64         `json:"user_id"`
	SelectedOrgID *int64        `json:"selected_org_id,omitempty"`
	IPAddress     string        `json:"ip_address,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	LastSeenAt    time.Time     `json:"last_seen_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	TTL           time.Duration `json:"ttl"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RateLimitStatus is the structured answer to a login rate-limit check
type RateLimitStatus struct {
	Allowed     bool       `json:"allowed"`
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	Remaining   int        `json:"remaining"`
}

const (
	// DefaultSessionTTL is the sliding session lifetime
	DefaultSessionTTL = 60 * time.Minute

	// MaxLoginFailures trips the lockout
	MaxLoginFailures = 5

	// LockoutWindow is both the failure-counting window and the lockout duration
	LockoutWindow = 15 * time.Minute
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs
	ErrSessionNotFound = errors.New("session: not found")
)
