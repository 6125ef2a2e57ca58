package middleware

import (
	"context"
	"net/http"
	"strings"

	adminauth "github.com/hallgate/adminauth"
)

// SessionCookieName is the cookie checked when no Authorization header
// is present.
const SessionCookieName = "admin_session"

type credentialContextKey struct{}

// CredentialFromContext returns the admin credential injected by
// [RequireAdmin], when present.
func CredentialFromContext(ctx context.Context) (*adminauth.AdminCredential, bool) {
	cred, ok := ctx.Value(credentialContextKey{}).(*adminauth.AdminCredential)
	return cred, ok
}

// RequireAdmin validates the request's session token against engine and
// injects the resulting credential into the request context. Requests
// without a valid, unexpired admin session get a 401.
func RequireAdmin(engine *adminauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := sessionToken(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cred, err := engine.ValidateSession(r.Context(), token)
			if err != nil {
				// Unknown, expired, and revoked tokens all read the
				// same from outside.
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), credentialContextKey{}, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
