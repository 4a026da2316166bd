package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// SettingsHandlers serves the duplication settings.
type SettingsHandlers struct {
	settingsService *services.SettingsService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

func NewSettingsHandlers(settingsService *services.SettingsService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SettingsHandlers {
	return &SettingsHandlers{
		settingsService: settingsService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandlers) GetSettings(c *gin.Context) {
	marker := h.perfTracker.StartOperation("handler_get_settings", "network")
	defer marker.Complete()

	settings, err := h.settingsService.Get()
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelDatabase, "get_settings", err, "", nil)
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, settings)
}

// PutSettings handles PUT /api/v1/settings. Out-of-range values are
// sanitised rather than rejected.
func (h *SettingsHandlers) PutSettings(c *gin.Context) {
	marker := h.perfTracker.StartOperation("handler_put_settings", "network")
	defer marker.Complete()

	var req content.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetSuccess(false)
		respondInvalid(c, "invalid settings body")
		return
	}

	settings, err := h.settingsService.Update(req)
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelDatabase, "put_settings", err, "", nil)
		respondError(c, err)
		return
	}

	h.logger.System().Info("Settings updated", "postStatus", settings.PostStatus, "postDate", settings.PostDate)
	respondOK(c, http.StatusOK, settings)
}
