package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions
type Store interface {
	// Create starts a session for the principal
	Create(ctx context.Context, userID int64, ip string, ttl time.Duration) (*Session, error)

	// Get retrieves a live session; expired or unknown IDs yield ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)

	// Touch slides the expiry forward and records activity; a zero ttl
	// reuses the lifetime the session was created with
	Touch(ctx context.Context, id string, ttl time.Duration) (*Session, error)

	// Invalidate ends the session immediately
	Invalidate(ctx context.Context, id string) error

	// SelectOrg records the principal's chosen tenant on the session.
	// Claims are re-minted from this value; nothing else may change it.
	SelectOrg(ctx context.Context, id string, orgID int64) (*Session, error)
}

// MemoryStore is an in-process Store used in tests and single-node setups
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create starts a session for the principal
func (s *MemoryStore) Create(ctx context.Context, userID int64, ip string, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()
	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		IPAddress:  ip,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ttl),
		TTL:        ttl,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return copySession(sess), nil
}

// Get retrieves a live session
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.Expired() {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Touch slides the expiry forward. A zero ttl keeps the lifetime the
// session was created with, so shortened platform-admin sessions stay
// short across refreshes.
func (s *MemoryStore) Touch(ctx context.Context, id string, ttl time.Duration) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired() {
		return nil, ErrSessionNotFound
	}
	if ttl <= 0 {
		ttl = sess.TTL
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()
	sess.LastSeenAt = now
	sess.ExpiresAt = now.Add(ttl)
	return copySession(sess), nil
}

// Invalidate ends the session immediately
func (s *MemoryStore) Invalidate(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// SelectOrg records the chosen tenant
func (s *MemoryStore) SelectOrg(ctx context.Context, id string, orgID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired() {
		return nil, ErrSessionNotFound
	}
	sess.SelectedOrgID = &orgID
	return copySession(sess), nil
}

func copySession(sess *Session) *Session {
	out := *sess
	if sess.SelectedOrgID != nil {
		orgID := *sess.SelectedOrgID
		out.SelectedOrgID = &orgID
	}
	return &out
}
