package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mindspero/mindspero/internal/auth"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

const (
	// IdentityKey is the context key for the authenticated identity
	IdentityKey ContextKey = "identity"
)

// AccessTokenCookie is read when no Authorization header is sent
const AccessTokenCookie = "accessToken"

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware returns a middleware that validates access tokens
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("Missing authentication token"))
				return
			}

			claims, err := auth.ParseClaims(tokenStr, jwtSecret, auth.KindAccess)
			if err != nil {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired token"))
				return
			}

			id := claims.Identity()
			AddLogField(r, "user_id", id.UserID)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity of a valid access token and lets
// anonymous requests through
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr := bearerToken(r); tokenStr != "" {
				if claims, err := auth.ParseClaims(tokenStr, jwtSecret, auth.KindAccess); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), claims.Identity()))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects identities without the admin role. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r)
		if !ok {
			utils.WriteError(w, errors.Unauthorized("Authentication required"))
			return
		}
		if id.Role != user.RoleAdmin {
			utils.WriteError(w, errors.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity stores id on ctx
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// GetIdentity extracts the authenticated identity from the request context
func GetIdentity(r *http.Request) (auth.Identity, bool) {
	id, ok := r.Context().Value(IdentityKey).(auth.Identity)
	return id, ok
}

// GetUserID extracts the user ID from the request context
func GetUserID(r *http.Request) (string, bool) {
	id, ok := GetIdentity(r)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}
