package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/postdup-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// NetworkDuplicateRequest is the body of POST /api/v1/network/duplicate.
type NetworkDuplicateRequest struct {
	SourceTenant      string                  `json:"sourceTenant"`
	DestinationTenant string                  `json:"destinationTenant"`
	PostIDs           []int64                 `json:"postIds"`
	Options           NetworkDuplicateOptions `json:"options"`
}

// NetworkDuplicateOptions leaves every field optional so omitted values
// fall back to the cross-tenant defaults.
type NetworkDuplicateOptions struct {
	CopyMedia    *bool  `json:"copyMedia"`
	SlugSuffix   string `json:"slugSuffix"`
	PostStatus   string `json:"postStatus"`
	PreserveDate bool   `json:"preserveDate"`
}

type bulkDuplicateRequest struct {
	PostIDs []int64 `json:"postIds"`
}

// DuplicateHandlers serves the single-tenant and network duplication endpoints.
type DuplicateHandlers struct {
	single      *services.DuplicateService
	bulk        *services.BulkService
	tenants     *services.MultiTenantService
	itemTimeout time.Duration
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDuplicateHandlers creates duplication handlers. itemTimeout bounds each
// post of a network batch; zero disables the limit.
func NewDuplicateHandlers(
	single *services.DuplicateService,
	bulk *services.BulkService,
	tenants *services.MultiTenantService,
	itemTimeout time.Duration,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *DuplicateHandlers {
	return &DuplicateHandlers{
		single:      single,
		bulk:        bulk,
		tenants:     tenants,
		itemTimeout: itemTimeout,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostDuplicatePost handles POST /api/v1/posts/:id/duplicate
func (h *DuplicateHandlers) PostDuplicatePost(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		respondInvalid(c, "tenant context not found")
		return
	}

	marker := h.perfTracker.StartOperation("handler_duplicate_post", tenantCtx.TenantID)
	defer marker.Complete()

	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || postID <= 0 {
		marker.SetSuccess(false)
		respondInvalid(c, "a numeric post id is required")
		return
	}

	newID, err := h.single.Duplicate(c.Request.Context(), tenantCtx, postID, actingUser(c))
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelDuplication, "duplicate_post", err, tenantCtx.TenantID, map[string]any{"postId": postID})
		respondError(c, err)
		return
	}

	marker.AddMetadata("newId", newID)
	respondOK(c, http.StatusCreated, gin.H{"sourcePostId": postID, "newPostId": newID})
}

// PostDuplicatePosts handles POST /api/v1/posts/duplicate
func (h *DuplicateHandlers) PostDuplicatePosts(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		respondInvalid(c, "tenant context not found")
		return
	}

	marker := h.perfTracker.StartOperation("handler_duplicate_posts", tenantCtx.TenantID)
	defer marker.Complete()

	var req bulkDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PostIDs) == 0 {
		marker.SetSuccess(false)
		respondInvalid(c, "postIds are required")
		return
	}

	result, err := h.bulk.DuplicateMany(c.Request.Context(), tenantCtx, req.PostIDs, actingUser(c))
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.AddMetadata("duplicated", result.Duplicated)
	respondOK(c, http.StatusOK, result)
}

// PostNetworkDuplicate handles POST /api/v1/network/duplicate
func (h *DuplicateHandlers) PostNetworkDuplicate(c *gin.Context) {
	marker := h.perfTracker.StartOperation("handler_network_duplicate", "network")
	defer marker.Complete()

	var req NetworkDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetSuccess(false)
		respondInvalid(c, "invalid request body")
		return
	}
	if len(req.PostIDs) == 0 {
		marker.SetSuccess(false)
		respondInvalid(c, "postIds are required")
		return
	}
	if req.SourceTenant == req.DestinationTenant {
		marker.SetSuccess(false)
		respondInvalid(c, "source and destination tenants must differ")
		return
	}
	for _, id := range []string{req.SourceTenant, req.DestinationTenant} {
		if _, err := h.tenants.RequireTenant(id); err != nil {
			marker.SetError(err)
			respondError(c, err)
			return
		}
	}

	opts := services.DefaultCrossTenantOptions()
	if req.Options.CopyMedia != nil {
		opts.CopyMedia = *req.Options.CopyMedia
	}
	if req.Options.PostStatus != "" {
		opts.PostStatus = req.Options.PostStatus
	}
	opts.SlugSuffix = req.Options.SlugSuffix
	opts.PreserveDate = req.Options.PreserveDate
	if user := actingUser(c); user > 0 {
		opts.ActingUserID = user
	}

	result, err := h.bulk.DuplicateBatch(c.Request.Context(), services.BatchRequest{
		SourceTenant: req.SourceTenant,
		DestTenant:   req.DestinationTenant,
		PostIDs:      req.PostIDs,
		Options:      opts,
		ItemTimeout:  h.itemTimeout,
	})
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	h.logger.Duplication().Info("Network duplication request served",
		"batchId", result.BatchID,
		"sourceTenant", req.SourceTenant,
		"destinationTenant", req.DestinationTenant,
		"succeeded", len(result.Success),
		"failed", len(result.Errors),
	)
	respondOK(c, http.StatusOK, result)
}

func actingUser(c *gin.Context) int64 {
	if principal, ok := middleware.GetPrincipal(c); ok {
		return principal.UserID
	}
	return 0
}
