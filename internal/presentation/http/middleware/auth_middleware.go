package middleware

import (
	"net/http"
	"strings"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// bearerToken reads the Authorization header, falling back to the token
// query parameter for websocket clients.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}

// NetworkAuth admits only network administrators.
func NetworkAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, http.StatusForbidden, "permission_denied", "network admin token required")
			return
		}

		principal, err := auth.ValidateNetworkToken(token)
		if err != nil {
			abortWithError(c, http.StatusForbidden, "permission_denied", "network admin token required")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// TenantRoleAuth admits admins and editors of the request's tenant, and
// network administrators. It must run after TenantMiddleware.
func TenantRoleAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantCtx, ok := GetTenantContext(c)
		if !ok {
			abortWithError(c, http.StatusInternalServerError, "internal", "tenant context not found")
			return
		}

		token := bearerToken(c)
		if token == "" {
			abortWithError(c, http.StatusForbidden, "permission_denied", "editor or admin token required")
			return
		}

		principal, err := auth.ValidateTenantToken(token, tenantCtx)
		if err != nil {
			abortWithError(c, http.StatusForbidden, "permission_denied", "editor or admin token required")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// GetPrincipal returns the caller authenticated by NetworkAuth or
// TenantRoleAuth.
func GetPrincipal(c *gin.Context) (*services.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*services.Principal)
	return p, ok
}
