package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/contextkeys"
)

// ClaimsMiddleware decodes the bearer token and places the resulting
// claims on the request context. Everything downstream reads the claims
// snapshot from the context and nothing else.
type ClaimsMiddleware struct {
	codec    *claims.TokenCodec
	optional bool // If true, allow requests without a token
}

// NewClaimsMiddleware creates the token-decoding middleware
func NewClaimsMiddleware(codec *claims.TokenCodec, optional bool) *ClaimsMiddleware {
	return &ClaimsMiddleware{
		codec:    codec,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with token decoding
func (m *ClaimsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		decoded, err := m.codec.Decode(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, claims.ErrTokenSuperseded) {
				m.unauthorizedResponse(w, "token superseded, refresh required")
				return
			}
			m.unauthorizedResponse(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithClaims(r.Context(), decoded)
		ctx = contextkeys.WithUserID(ctx, decoded.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *ClaimsMiddleware) unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}

// ClaimsFromContext retrieves the decoded claims, nil when absent
func ClaimsFromContext(r *http.Request) *claims.Claims {
	c, _ := r.Context().Value(contextkeys.ClaimsKey).(*claims.Claims)
	return c
}
