package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "session"), mr
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := store.Create(ctx, 10, "192.0.2.1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, int64(10), sess.UserID)
	assert.Nil(t, sess.SelectedOrgID, "no tenant selected at login")

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	selected, err := store.SelectOrg(ctx, sess.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, selected.SelectedOrgID)
	assert.Equal(t, int64(7), *selected.SelectedOrgID)

	require.NoError(t, store.Invalidate(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Touch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := store.Create(ctx, 10, "", time.Hour)
	require.NoError(t, err)

	touched, err := store.Touch(ctx, sess.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, touched.ExpiresAt.After(sess.ExpiresAt))
}

func TestRedisStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := testRedisStore(t)

	sess, err := store.Create(ctx, 10, "192.0.2.1", time.Hour)
	require.NoError(t, err)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, "192.0.2.1", got.IPAddress)

	selected, err := store.SelectOrg(ctx, sess.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, selected.SelectedOrgID)
	assert.Equal(t, int64(7), *selected.SelectedOrgID)

	// Selection survives a round trip
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SelectedOrgID)
	assert.Equal(t, int64(7), *got.SelectedOrgID)

	require.NoError(t, store.Invalidate(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := testRedisStore(t)

	sess, err := store.Create(ctx, 10, "", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	store, mr := testRedisStore(t)

	require.NoError(t, mr.Set("session:broken", "not json"))
	_, err := store.Get(ctx, "broken")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTouch_KeepsCreatedLifetime(t *testing.T) {
	ctx := context.Background()

	// A session created with a short lifetime (platform admins get one
	// from their allow-list record) must not grow back to the default
	// on refresh.
	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		sess, err := store.Create(ctx, 99, "", 15*time.Minute)
		require.NoError(t, err)

		touched, err := store.Touch(ctx, sess.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, touched.TTL)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), touched.ExpiresAt, time.Minute)
	})

	t.Run("redis", func(t *testing.T) {
		store, _ := testRedisStore(t)
		sess, err := store.Create(ctx, 99, "", 15*time.Minute)
		require.NoError(t, err)

		touched, err := store.Touch(ctx, sess.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, touched.TTL)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), touched.ExpiresAt, time.Minute)
	})
}
