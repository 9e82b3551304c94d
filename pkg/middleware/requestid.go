package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/requisify/requisify/pkg/contextkeys"
)

// RequestIDHeader carries the request ID on responses and may supply one
// on requests from trusted proxies
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID so security events and log
// lines from one request can be tied together
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
