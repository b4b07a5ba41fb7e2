package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errNoToken = errors.New("auth: no bearer token")

// contextKey is unexported so no other package can read or shadow the
// uid this package stores in request contexts.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth enforces a valid session token on protected routes. The
// uid lands in the request context; a missing or invalid token ends the
// chain with a 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the uid when a valid token is present but never
// blocks the request. Public reads and like toggles sit behind this:
// anonymous viewers are first-class citizens here, they just identify
// themselves differently (see ViewerID).
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid, err := extractUserID(r, tokens); err == nil && uid != "" {
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, uid))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated uid, or ("", false) for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ViewerID resolves the identity used for like membership: the
// authenticated uid when there is one, otherwise the client's
// self-assigned device id. Device ids get a "device:" prefix so an
// anonymous client can never collide with (or impersonate) a real uid.
func ViewerID(r *http.Request) string {
	if uid, ok := UserIDFromContext(r.Context()); ok {
		return uid
	}
	if device := strings.TrimSpace(r.Header.Get("X-Device-ID")); device != "" {
		return "device:" + device
	}
	return ""
}

// extractUserID pulls the token from the Authorization header and
// validates it. Shared by RequireAuth and OptionalAuth.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errNoToken
	}
	return tokens.Validate(strings.TrimSpace(header[len(prefix):]))
}
