package handlers

import (
	"net/http"
	"strconv"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// MultiTenantHandlers serves the network-level tenant and post listings.
type MultiTenantHandlers struct {
	service     *services.MultiTenantService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewMultiTenantHandlers creates a new MultiTenantHandlers instance.
func NewMultiTenantHandlers(
	service *services.MultiTenantService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *MultiTenantHandlers {
	return &MultiTenantHandlers{
		service:     service,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetTenants handles GET /api/v1/network/tenants
func (h *MultiTenantHandlers) GetTenants(c *gin.Context) {
	marker := h.perfTracker.StartOperation("handler_get_tenants", "network")
	defer marker.Complete()

	tenants, err := h.service.ListTenants()
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelTenant, "list_tenants", err, "", nil)
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"tenants": tenants})
}

// GetTenantPosts handles GET /api/v1/network/tenants/:tenantId/posts
func (h *MultiTenantHandlers) GetTenantPosts(c *gin.Context) {
	tenantID := c.Param("tenantId")
	marker := h.perfTracker.StartOperation("handler_get_tenant_posts", tenantID)
	defer marker.Complete()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "20"))

	result, err := h.service.ListPosts(tenantID, content.PostQuery{
		Type:    c.DefaultQuery("type", content.TypePost),
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}
