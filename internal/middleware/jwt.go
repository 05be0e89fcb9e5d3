package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/backend/internal/auth"
	"github.com/edupulse/backend/pkg/response"
)

const (
	// ContextUserID is the key for the user id (int64) in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for the user role in gin context.
	ContextUserRole = "user_role"
	// ContextDepartmentID is the key for the optional department id (*int64).
	ContextDepartmentID = "department_id"
	// ContextSubjects is the key for the user's subscribed subjects ([]string).
	ContextSubjects = "subjects"
)

// JWT returns a middleware that validates the token and sets user claims
// in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextDepartmentID, claims.DepartmentID)
		c.Set(ContextSubjects, claims.Subjects)
		c.Next()
	}
}
