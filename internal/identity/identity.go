// Package identity carries the caller's user and couple IDs through a request.
// Authentication happens upstream; the gateway forwards the verified IDs as
// headers.
package identity

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

const (
	UserHeaderName   = "X-Tandem-User-ID"
	CoupleHeaderName = "X-Tandem-Couple-ID"
)

type contextKey int

const (
	userIDKey contextKey = iota
	coupleIDKey
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// CoupleIDFromContext extracts the couple ID from the request context.
func CoupleIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(coupleIDKey).(string); ok {
		return v
	}
	return ""
}

// WithIdentity returns a context carrying the given IDs.
func WithIdentity(ctx context.Context, userID, coupleID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, coupleIDKey, coupleID)
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if !idPattern.MatchString(id) {
		return ""
	}
	return id
}

// Middleware rejects requests without valid identity headers and stores the
// IDs on the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeID(r.Header.Get(UserHeaderName))
		coupleID := sanitizeID(r.Header.Get(CoupleHeaderName))
		if userID == "" || coupleID == "" {
			http.Error(w, `{"error":"missing or invalid identity headers"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, coupleID)))
	})
}
