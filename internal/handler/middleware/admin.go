package middleware

import (
	"github.com/gin-gonic/gin"

	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/pkg/response"
)

// RequireRole rejects callers whose role differs from role.
// Must be used after JWTAuth middleware.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}
		if identity.Role != role {
			response.Forbidden(c, string(role)+" access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
