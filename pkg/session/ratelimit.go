package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/requisify/requisify/pkg/secaudit"
)

// LoginLimiter throttles credential attempts. Failures are counted per
// normalized email and per source IP in rolling Redis windows; tripping
// either counter locks that key for the full window. A successful login
// clears the counters, so the lockout only ever reflects consecutive
// failures.
type LoginLimiter struct {
	redis       *redis.Client
	recorder    secaudit.Recorder
	maxFailures int
	window      time.Duration
}

// NewLoginLimiter creates a limiter with the standing policy of
// MaxLoginFailures failures per LockoutWindow
func NewLoginLimiter(client *redis.Client, recorder secaudit.Recorder) *LoginLimiter {
	return &LoginLimiter{
		redis:       client,
		recorder:    recorder,
		maxFailures: MaxLoginFailures,
		window:      LockoutWindow,
	}
}

// Check reports whether a login attempt for the email/IP pair may proceed.
// It does not count the attempt; call RecordFailure or RecordSuccess with
// the outcome.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) (*RateLimitStatus, error) {
	for _, key := range []string{l.lockKey("email", normalizeEmail(email)), l.lockKey("ip", ip)} {
		ttl, err := l.redis.PTTL(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("rate limit check failed: %w", err)
		}
		if ttl > 0 {
			until := time.Now().Add(ttl)
			return &RateLimitStatus{Allowed: false, Locked: true, LockedUntil: &until}, nil
		}
	}

	count, err := l.failureCount(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	remaining := l.maxFailures - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitStatus{Allowed: true, Remaining: remaining}, nil
}

// RecordFailure counts a failed attempt against both the email and the IP.
// When either counter reaches the limit the key is locked for the full
// window and a lockout event is recorded; otherwise the failure itself is
// logged
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) (*RateLimitStatus, error) {
	emailKey := normalizeEmail(email)

	emailCount, err := l.bump(ctx, l.failKey("email", emailKey))
	if err != nil {
		return nil, err
	}
	ipCount, err := l.bump(ctx, l.failKey("ip", ip))
	if err != nil {
		return nil, err
	}

	locked := false
	if emailCount >= int64(l.maxFailures) {
		if err := l.lock(ctx, l.lockKey("email", emailKey)); err != nil {
			return nil, err
		}
		locked = true
	}
	if ipCount >= int64(l.maxFailures) {
		if err := l.lock(ctx, l.lockKey("ip", ip)); err != nil {
			return nil, err
		}
		locked = true
	}

	if locked {
		until := time.Now().Add(l.window)
		l.emit(ctx, secaudit.EventLoginLocked, secaudit.SeverityWarning, email, ip, true,
			fmt.Sprintf("locked out after %d failures", l.maxFailures))
		return &RateLimitStatus{Allowed: false, Locked: true, LockedUntil: &until}, nil
	}

	l.emit(ctx, secaudit.EventLoginFailed, secaudit.SeverityInfo, email, ip, false,
		fmt.Sprintf("failed attempt %d of %d", emailCount, l.maxFailures))

	remaining := l.maxFailures - int(emailCount)
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitStatus{Allowed: true, Remaining: remaining}, nil
}

// RecordSuccess resets the failure counters for the pair. A lockout in
// force is not cleared; it has to expire.
func (l *LoginLimiter) RecordSuccess(ctx context.Context, email, ip string) error {
	keys := []string{
		l.failKey("email", normalizeEmail(email)),
		l.failKey("ip", ip),
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rate limit reset failed: %w", err)
	}
	return nil
}

func (l *LoginLimiter) bump(ctx context.Context, key string) (int64, error) {
	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit increment failed: %w", err)
	}
	return incr.Val(), nil
}

func (l *LoginLimiter) lock(ctx context.Context, key string) error {
	if err := l.redis.Set(ctx, key, "1", l.window).Err(); err != nil {
		return fmt.Errorf("rate limit lock failed: %w", err)
	}
	return nil
}

func (l *LoginLimiter) emit(ctx context.Context, typ secaudit.EventType, sev secaudit.Severity, email, ip string, blocked bool, detail string) {
	if l.recorder == nil {
		return
	}
	// Best effort; a failed audit write must not turn away the login path
	_ = l.recorder.Record(ctx, &secaudit.Event{
		Type:      typ,
		Severity:  sev,
		Blocked:   blocked,
		Detail:    fmt.Sprintf("%s (email=%s)", detail, normalizeEmail(email)),
		IPAddress: ip,
	})
}

func (l *LoginLimiter) failKey(kind, value string) string {
	return fmt.Sprintf("loginfail:%s:%s", kind, value)
}

func (l *LoginLimiter) lockKey(kind, value string) string {
	return fmt.Sprintf("loginlock:%s:%s", kind, value)
}

func (l *LoginLimiter) failureCount(ctx context.Context, emailKey string) (int, error) {
	count, err := l.redis.Get(ctx, l.failKey("email", emailKey)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rate limit read failed: %w", err)
	}
	return count, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
