package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/jwt"
	"github.com/northstarhq/api/pkg/logger"
)

// Auth-related context keys - use logger.ContextKey for consistency.
const (
	UserIDKey                       = logger.ContextKeyUserID
	EmailKey      logger.ContextKey = "email"
	ClaimsKey     logger.ContextKey = "claims"      // *jwt.Claims for downstream middleware
	SystemRoleKey logger.ContextKey = "system_role" // platform-level role from token
)

// TokenBlacklist checks whether a session has been revoked.
// Implemented by the Redis token store.
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// TokenValidator validates access tokens. Implemented by jwt.Generator.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*jwt.Claims, error)
}

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	// Validator validates bearer tokens.
	Validator TokenValidator
	// Blacklist is optional; when set, revoked sessions are rejected.
	Blacklist TokenBlacklist
	// CookieName is the cookie to fall back to when no Authorization
	// header is present.
	CookieName string
	// AllowQueryToken permits ?token= extraction. Only enabled on the
	// WebSocket route, where browsers cannot set headers.
	AllowQueryToken bool
	// Logger for auth events.
	Logger *logger.Logger
}

// Auth validates the access token and attaches the claims to the
// request context. Token lookup order: Authorization header, cookie,
// and optionally the token query parameter.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cfg.CookieName, cfg.AllowQueryToken)
			if token == "" {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}

			claims, err := cfg.Validator.ValidateAccessToken(token)
			if err != nil {
				apierror.Unauthorized("Invalid or expired token").WriteJSON(w)
				return
			}

			if cfg.Blacklist != nil && claims.SessionID != "" {
				revoked, blErr := cfg.Blacklist.IsBlacklisted(r.Context(), claims.SessionID)
				if blErr != nil {
					// Fail-open on Redis outage; revocation is best-effort
					// on top of short-lived access tokens.
					if cfg.Logger != nil {
						cfg.Logger.Error("token blacklist check failed",
							"error", blErr,
							"request_id", GetRequestID(r.Context()),
						)
					}
				} else if revoked {
					apierror.Unauthorized("Session has been revoked").WriteJSON(w)
					return
				}
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, SystemRoleKey, claims.SystemRole)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the access token from the request.
func extractToken(r *http.Request, cookieName string, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}

	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	if allowQuery {
		return r.URL.Query().Get("token")
	}

	return ""
}

// GetUserID extracts the user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetUserIDAsID extracts the user ID from context as a shared.ID.
// Returns the zero ID when absent or malformed.
func GetUserIDAsID(ctx context.Context) shared.ID {
	id, err := shared.IDFromString(GetUserID(ctx))
	if err != nil {
		return shared.ID{}
	}
	return id
}

// GetEmail extracts the user email from context.
func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// GetClaims extracts the validated token claims from context.
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

// GetSystemRole extracts the platform-level role from context.
func GetSystemRole(ctx context.Context) string {
	if role, ok := ctx.Value(SystemRoleKey).(string); ok {
		return role
	}
	return ""
}

// IsSystemAdmin reports whether the caller carries the platform admin
// role. This is the single place the system role is interpreted.
func IsSystemAdmin(ctx context.Context) bool {
	return GetSystemRole(ctx) == "admin"
}

// RequireSystemAdmin restricts a route to platform administrators.
func RequireSystemAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserID(r.Context()) == "" {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}
			if !IsSystemAdmin(r.Context()) {
				apierror.Forbidden("System administrator access required").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
