package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisStore implements Store on Redis so sessions survive restarts and
// are shared across instances
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

// Create starts a session for the principal
func (s *RedisStore) Create(ctx context.Context, userID int64, ip string, ttl time.Duration) (*Session, error) {
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
	if err := s.save(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get retrieves a live session
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal([]byte(data), sess); err != nil {
		// Corrupt payload: drop it rather than serve it
		s.redis.Del(ctx, s.key(id))
		return nil, ErrSessionNotFound
	}
	if sess.Expired() {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Touch slides the expiry forward. A zero ttl keeps the lifetime the
// session was created with, so shortened platform-admin sessions stay
// short across refreshes.
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
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
	if err := s.save(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Invalidate ends the session immediately
func (s *RedisStore) Invalidate(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// SelectOrg records the chosen tenant
func (s *RedisStore) SelectOrg(ctx context.Context, id string, orgID int64) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.SelectedOrgID = &orgID
	if err := s.save(ctx, sess, time.Until(sess.ExpiresAt)); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}
