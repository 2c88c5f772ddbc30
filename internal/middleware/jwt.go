package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atlas-support/backend/internal/auth"
	"github.com/atlas-support/backend/pkg/response"
)

const (
	// ContextService is the key for the calling service name in gin context.
	ContextService = "service"
	// ContextRole is the key for the caller's role in gin context.
	ContextRole = "role"
)

// JWT returns a middleware that validates a service token and records the
// caller in the request context.
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
		c.Set(ContextService, claims.Service)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
