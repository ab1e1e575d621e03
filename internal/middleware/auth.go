package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"driftbox/internal/domain"
	"driftbox/internal/service"
)

const (
	ContextKeyPrincipal = "principal"
	HeaderAPIKey        = "X-API-Key"
)

// AuthMiddleware returns Gin middleware that resolves the caller into a
// principal from either a bearer token or an API key and injects it into the
// request context. Every path-bearing call downstream is checked against the
// principal's permitted path prefix.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawKey := c.GetHeader(HeaderAPIKey); rawKey != "" {
			principal, err := authService.ValidateAPIKey(c.Request.Context(), rawKey)
			if err != nil {
				abortUnauthorized(c, "invalid api key")
				return
			}
			c.Set(ContextKeyPrincipal, *principal)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "missing or invalid authorization header")
			return
		}

		principal, err := authService.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeyPrincipal, *principal)
		c.Next()
	}
}

// RequireRole returns middleware that checks the principal's role against
// allowed roles.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			abortForbidden(c, "principal not found in context")
			return
		}

		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		abortForbidden(c, "insufficient permissions")
	}
}

// GetPrincipal extracts the authenticated principal from the Gin context.
func GetPrincipal(c *gin.Context) (domain.Principal, error) {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return val.(domain.Principal), nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": msg},
	})
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   gin.H{"code": "FORBIDDEN", "message": msg},
	})
}
