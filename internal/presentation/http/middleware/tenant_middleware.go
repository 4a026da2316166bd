// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
	"github.com/gin-gonic/gin"
)

const tenantKey = "tenant"

// TenantMiddleware resolves the tenant named by the X-Tenant-ID header (or
// the tenantId query parameter) and stores its context on the request.
func TenantMiddleware(resolver tenant.Resolver, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		marker := perfTracker.StartOperation("middleware_tenant_resolution", "unknown")
		defer marker.Complete()

		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			tenantID = c.Query("tenantId")
		}

		marker.AddMetadata("path", c.Request.URL.Path)
		marker.AddMetadata("method", c.Request.Method)

		if tenantID == "" {
			errMsg := "X-Tenant-ID header or tenantId query param is required"
			logger.Tenant().Warn(errMsg, "path", c.Request.URL.Path)
			marker.SetError(errors.New(errMsg))
			abortWithError(c, http.StatusBadRequest, "validation_failed", errMsg)
			return
		}
		marker.TenantID = tenantID

		tenantCtx, err := resolver.GetContextByID(tenantID)
		if err != nil {
			logger.Tenant().Warn("Tenant resolution failed", "error", err, "tenantId", tenantID)
			marker.SetError(err)
			abortWithError(c, http.StatusNotFound, "not_found", "tenant not found")
			return
		}

		logger.Tenant().Debug("Tenant context resolved",
			"tenantId", tenantCtx.TenantID,
			"duration", time.Since(start),
			"database", tenantCtx.GetDatabaseInfo(),
		)

		c.Set(tenantKey, tenantCtx)
		c.Next()
	}
}

// GetTenantContext retrieves the tenant context from gin context.
func GetTenantContext(c *gin.Context) (*tenant.Context, bool) {
	tenantCtx, exists := c.Get(tenantKey)
	if !exists {
		return nil, false
	}

	ctx, ok := tenantCtx.(*tenant.Context)
	return ctx, ok
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}
