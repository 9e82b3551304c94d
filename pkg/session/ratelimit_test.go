package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/requisify/requisify/pkg/secaudit"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []*secaudit.Event
}

func (r *captureRecorder) Record(ctx context.Context, event *secaudit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *captureRecorder) byType(typ secaudit.EventType) []*secaudit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*secaudit.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func testLimiter(t *testing.T) (*LoginLimiter, *captureRecorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	recorder := &captureRecorder{}
	return NewLoginLimiter(client, recorder), recorder, mr
}

func TestLoginLimiter_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	limiter, recorder, _ := testLimiter(t)

	for i := 0; i < MaxLoginFailures-1; i++ {
		status, err := limiter.RecordFailure(ctx, "buyer@acme.test", "192.0.2.1")
		require.NoError(t, err)
		assert.True(t, status.Allowed)
		assert.False(t, status.Locked)
	}

	// Fifth consecutive failure trips the lockout
	status, err := limiter.RecordFailure(ctx, "buyer@acme.test", "192.0.2.1")
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.True(t, status.Locked)
	require.NotNil(t, status.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(LockoutWindow), *status.LockedUntil, 5*time.Second)

	// A sixth attempt is refused before credentials are even checked
	status, err = limiter.Check(ctx, "buyer@acme.test", "192.0.2.1")
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.True(t, status.Locked)
	require.NotNil(t, status.LockedUntil)

	assert.Len(t, recorder.byType(secaudit.EventLoginFailed), MaxLoginFailures-1)
	require.Len(t, recorder.byType(secaudit.EventLoginLocked), 1)
	assert.Equal(t, secaudit.SeverityWarning, recorder.byType(secaudit.EventLoginLocked)[0].Severity)
}

func TestLoginLimiter_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	limiter, _, _ := testLimiter(t)

	for i := 0; i < MaxLoginFailures-1; i++ {
		_, err := limiter.RecordFailure(ctx, "buyer@acme.test", "192.0.2.1")
		require.NoError(t, err)
	}

	require.NoError(t, limiter.RecordSuccess(ctx, "buyer@acme.test", "192.0.2.1"))

	// The counter starts over; another failure is attempt one, not five
	status, err := limiter.RecordFailure(ctx, "buyer@acme.test", "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.False(t, status.Locked)
	assert.Equal(t, MaxLoginFailures-1, status.Remaining)
}

func TestLoginLimiter_LockoutExpires(t *testing.T) {
	ctx := context.Background()
	limiter, _, mr := testLimiter(t)

	for i := 0; i < MaxLoginFailures; i++ {
		_, err := limiter.RecordFailure(ctx, "buyer@acme.test", "192.0.2.1")
		require.NoError(t, err)
	}

	status, err := limiter.Check(ctx, "buyer@acme.test", "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, status.Locked)

	mr.FastForward(LockoutWindow + time.Minute)

	status, err = limiter.Check(ctx, "buyer@acme.test", "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.False(t, status.Locked)
	assert.Equal(t, MaxLoginFailures, status.Remaining)
}

func TestLoginLimiter_EmailNormalized(t *testing.T) {
	ctx := context.Background()
	limiter, _, _ := testLimiter(t)

	for i := 0; i < MaxLoginFailures; i++ {
		_, err := limiter.RecordFailure(ctx, "Buyer@Acme.Test", "192.0.2.1")
		require.NoError(t, err)
	}

	// Case variants share the counter
	status, err := limiter.Check(ctx, "buyer@acme.test", "198.51.100.9")
	require.NoError(t, err)
	assert.True(t, status.Locked)
}

func TestLoginLimiter_IPCounterIndependent(t *testing.T) {
	ctx := context.Background()
	limiter, _, _ := testLimiter(t)

	// Spray across many emails from one address
	emails := []string{"a@x.test", "b@x.test", "c@x.test", "d@x.test", "e@x.test"}
	for _, email := range emails {
		_, err := limiter.RecordFailure(ctx, email, "192.0.2.1")
		require.NoError(t, err)
	}

	status, err := limiter.Check(ctx, "fresh@x.test", "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, status.Locked, "IP counter trips independently of email")

	// A different address is unaffected
	status, err = limiter.Check(ctx, "fresh@x.test", "198.51.100.9")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
}
