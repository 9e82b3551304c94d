package claims

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// VersionStore tracks a per-principal token version in Redis. Bumping the
// version invalidates every outstanding token for that principal without
// waiting for expiry; this backs the forced refresh required for
// security-sensitive role changes such as demoting an owner.
type VersionStore struct {
	redis  *redis.Client
	prefix string
}

// NewVersionStore creates a Redis-backed version store
func NewVersionStore(client *redis.Client, prefix string) *VersionStore {
	if prefix == "" {
		prefix = "tokenver"
	}
	return &VersionStore{redis: client, prefix: prefix}
}

// Current returns the principal's token version, zero when never bumped
func (s *VersionStore) Current(ctx context.Context, userID int64) (int64, error) {
	version, err := s.redis.Get(ctx, s.key(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return version, nil
}

// Bump increments the principal's token version, superseding every token
// minted before the bump
func (s *VersionStore) Bump(ctx context.Context, userID int64) (int64, error) {
	version, err := s.redis.Incr(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}
	return version, nil
}

func (s *VersionStore) key(userID int64) string {
	return fmt.Sprintf("%s:%d", s.prefix, userID)
}
