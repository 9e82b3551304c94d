package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/requisify/requisify/pkg/tenancy"
)

const issuer = "requisify"

// DefaultTokenTTL bounds the staleness window of minted claims. A
// membership revoked after mint stays effective until the token expires or
// is refreshed, so the TTL is the upper bound on that lag.
const DefaultTokenTTL = 60 * time.Minute

// tokenClaims is the JWT payload carrying Claims plus the token version
type tokenClaims struct {
	TenantID        *int64  `json:"tenant_id"`
	OrgRole         *string `json:"org_role"`
	WorkflowRole    *string `json:"workflow_role"`
	IsPlatformAdmin bool    `json:"is_platform_admin"`
	TokenVersion    int64   `json:"tv"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies claims tokens
type TokenCodec struct {
	secret   []byte
	ttl      time.Duration
	versions *VersionStore
}

// NewTokenCodec creates a codec. versions may be nil, which disables the
// forced-refresh check (used in tests of pure encode/decode behavior).
func NewTokenCodec(secret []byte, ttl time.Duration, versions *VersionStore) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: secret, ttl: ttl, versions: versions}
}

// Encode signs the claims into a compact JWT
func (tc *TokenCodec) Encode(ctx context.Context, c *Claims) (string, error) {
	now := time.Now()

	payload := tokenClaims{
		TenantID:        c.TenantID,
		IsPlatformAdmin: c.IsPlatformAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", c.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.ttl)),
		},
	}
	if c.OrgRole != nil {
		role := string(*c.OrgRole)
		payload.OrgRole = &role
	}
	if c.WorkflowRole != nil {
		role := string(*c.WorkflowRole)
		payload.WorkflowRole = &role
	}
	if tc.versions != nil {
		version, err := tc.versions.Current(ctx, c.UserID)
		if err != nil {
			return "", fmt.Errorf("failed to read token version: %w", err)
		}
		payload.TokenVersion = version
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token signature, expiry and version, and returns the
// embedded Claims. Superseded tokens (minted before a forced refresh) fail
// with ErrTokenSuperseded.
func (tc *TokenCodec) Decode(ctx context.Context, tokenString string) (*Claims, error) {
	payload := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, payload, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tc.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	var userID int64
	if _, err := fmt.Sscanf(payload.Subject, "%d", &userID); err != nil {
		return nil, ErrTokenInvalid
	}

	if tc.versions != nil {
		current, err := tc.versions.Current(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to read token version: %w", err)
		}
		if payload.TokenVersion < current {
			return nil, ErrTokenSuperseded
		}
	}

	c := &Claims{
		TenantID:        payload.TenantID,
		IsPlatformAdmin: payload.IsPlatformAdmin,
		UserID:          userID,
	}
	if payload.OrgRole != nil {
		role := tenancy.OrgRole(*payload.OrgRole)
		c.OrgRole = &role
	}
	if payload.WorkflowRole != nil {
		role := tenancy.WorkflowRole(*payload.WorkflowRole)
		c.WorkflowRole = &role
	}
	return c, nil
}

// TTL returns the configured token lifetime
func (tc *TokenCodec) TTL() time.Duration {
	return tc.ttl
}
