package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/pkg/response"
)

const ContextKeyIdentity = "identity"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*service.Identity, error)
}

// JWTAuth resolves the bearer token to the caller's identity and stores it on
// the request context for handlers to pass into the services.
func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.Unauthorized(c, "user no longer exists")
			} else {
				response.Unauthorized(c, "invalid or expired token")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by JWTAuth.
func IdentityFrom(c *gin.Context) (*service.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*service.Identity)
	return id, ok
}
