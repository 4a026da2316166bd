// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/postdup-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostNetworkLogin handles POST /api/v1/network/login
func (h *AuthHandlers) PostNetworkLogin(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_network_login_request", "network")
	defer marker.Complete()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Auth().Debug("Network login request JSON binding failed", "error", err.Error())
		marker.SetSuccess(false)
		respondInvalid(c, "password is required")
		return
	}

	result := h.authService.AuthenticateNetwork(req.Password)
	if !result.Success {
		h.logger.Auth().Warn("Network login attempt failed", "duration", time.Since(start))
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "permission_denied", "message": result.Error},
		})
		return
	}

	h.logger.Auth().Info("Network login successful", "duration", time.Since(start))
	respondOK(c, http.StatusOK, gin.H{"token": result.Token, "role": result.Role})
}

// PostLogin handles POST /api/v1/auth/login - tenant admin/editor authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": "internal", "message": "tenant context not found"}})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request", tenantCtx.TenantID)
	defer marker.Complete()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Auth().Debug("Login request JSON binding failed", "tenantId", tenantCtx.TenantID, "error", err.Error())
		marker.SetSuccess(false)
		respondInvalid(c, "password is required")
		return
	}

	result := h.authService.AuthenticateAdmin(req.Password, tenantCtx)
	if !result.Success {
		h.logger.Auth().Warn("Login attempt failed", "tenantId", tenantCtx.TenantID, "duration", time.Since(start))
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "permission_denied", "message": result.Error},
		})
		return
	}

	h.logger.Auth().Info("Login successful", "tenantId", tenantCtx.TenantID, "role", result.Role, "duration", time.Since(start))
	respondOK(c, http.StatusOK, gin.H{"token": result.Token, "role": result.Role})
}
