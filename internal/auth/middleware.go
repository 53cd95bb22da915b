package auth

import (
	"context"
	"net/http"
)

// contextKey is unexported so only this package can read or write identity
// values in a request context — a plain string key could be shadowed by any
// package that happens to use the same literal.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the HttpOnly cookie carrying the JWT credential. Exported
// so the handlers that set and clear it use the same name the middleware
// reads.
const CookieName = "token"

// RequireAuth enforces authentication on the routes it wraps. It reads the
// JWT from the cookie, validates it, and stores the identity email in the
// request context; a missing or invalid token ends the request with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := extractIdentity(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity (normalized
// email) from the request context. Returns ("", false) on anonymous
// requests.
func IdentityFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(identityKey).(string)
	return email, ok && email != ""
}

// extractIdentity reads the credential cookie and validates it.
func extractIdentity(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
