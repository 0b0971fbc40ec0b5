// Package identity extracts the caller claims forwarded by the auth gateway.
// Token verification happens upstream; this service trusts the forwarded
// headers the same way the rest of the platform does.
package identity

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quickbite/order-service/internal/shared/authz"
)

// Header names set by the gateway after verifying the access token.
const (
	HeaderSubject = "X-Auth-Subject"
	HeaderEmail   = "X-Auth-Email"
	HeaderRole    = "X-Auth-Role"
	HeaderTenant  = "X-Auth-Tenant"
)

const contextKey = "identity.claims"

// Claims carries the verified caller identity.
type Claims struct {
	Subject  string
	Email    string
	Role     authz.Role
	TenantID string
}

// Middleware parses the gateway headers into Claims and rejects anonymous
// requests with 401.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims{
			Subject:  strings.TrimSpace(c.GetHeader(HeaderSubject)),
			Email:    strings.TrimSpace(c.GetHeader(HeaderEmail)),
			Role:     authz.Role(strings.TrimSpace(c.GetHeader(HeaderRole))),
			TenantID: strings.TrimSpace(c.GetHeader(HeaderTenant)),
		}
		if claims.Subject == "" || claims.Role == "" {
			c.AbortWithStatusJSON(401, gin.H{"message": "missing authentication context"})
			return
		}
		c.Set(contextKey, claims)
		c.Next()
	}
}

// FromContext returns the claims stored by Middleware.
func FromContext(c *gin.Context) (Claims, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := value.(Claims)
	return claims, ok
}
