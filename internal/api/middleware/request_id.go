package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const RequestIDCtxKey contextKey = "requestID"

const (
	RequestIDHeader = "X-Request-ID"
	// Longer client-supplied ids are replaced to keep log lines bounded.
	requestIDMaxLen = 64
)

// RequestID takes the request id from X-Request-ID or generates a UUID,
// stores it in the context and echoes it in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(RequestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, rid)
		ctx := context.WithValue(r.Context(), RequestIDCtxKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	rid, ok := ctx.Value(RequestIDCtxKey).(string)
	return rid, ok
}
