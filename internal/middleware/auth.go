package middleware

import (
	"context"
	"strings"

	"spazatrack/internal/apperr"
	"spazatrack/internal/authz"

	"github.com/gin-gonic/gin"
)

const PrincipalKey = "principal"

// Authorizer resolves a bearer token into a principal holding cap.
type Authorizer interface {
	Authorize(ctx context.Context, token string, cap authz.Capability) (*authz.Principal, error)
}

// RequireCapability validates the Bearer token and checks cap before the
// handler runs. On success the principal is stored on both the gin context and
// the request context.
func RequireCapability(guard Authorizer, cap authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(apperr.ErrInvalidToken)
			c.Abort()
			return
		}

		p, err := guard.Authorize(c.Request.Context(), token, cap)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		p.ClientIP = c.ClientIP()

		c.Set(PrincipalKey, p)
		c.Request = c.Request.WithContext(authz.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// GetPrincipal returns the principal set by RequireCapability, or nil on a
// public route.
func GetPrincipal(c *gin.Context) *authz.Principal {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*authz.Principal)
	return p
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
