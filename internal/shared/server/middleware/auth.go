package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applybro-backend/internal/shared/auth"
	"applybro-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userRoleKey  = "userRole"
)

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// Auth resolves the caller from an optional Bearer token. Requests without an
// Authorization header continue anonymously; a malformed or invalid token is rejected.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") || tokens == nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			msg := "missing or invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			respond.Error(c, http.StatusUnauthorized, "unauthorized", msg, nil)
			return
		}

		c.Set(userIDKey, claims.UserID())
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Set(userRoleKey, claims.Role)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
			return
		}
		if !IsAdmin(c) {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin access required", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserRoleFromContext fetches the role claim.
func UserRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userRoleKey)
}

func IsAdmin(c *gin.Context) bool {
	return UserRoleFromContext(c) == auth.RoleAdmin
}
