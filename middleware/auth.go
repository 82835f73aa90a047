package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"linkedin-insights/internal/auth"
	"linkedin-insights/utils"
)

// RequireAdmin guards admin routes with an HS256 bearer token carrying role=admin.
// With an empty secret the guard is disabled and every request passes.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		tokenString := extractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := auth.ValidateAdminToken(secret, tokenString)
		if err == auth.ErrNotAdmin {
			utils.RespondWithForbidden(c, "Admin role required")
			c.Abort()
			return
		}
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Set("role", claims.Role)
		c.Set("claims", claims)

		c.Next()
	}
}

// GetSubject returns the token subject of an authenticated admin request, or "".
func GetSubject(c *gin.Context) string {
	if subject, exists := c.Get("subject"); exists {
		if s, ok := subject.(string); ok {
			return s
		}
	}
	return ""
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
