package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edupulse/backend/pkg/response"
)

// RequireRole allows only the listed roles past it. It must run after JWT,
// which puts the role into the request context.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}
