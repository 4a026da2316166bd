package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
	"github.com/gin-gonic/gin"
)

// ActiveTenantCounter reports how many tenant stores are open.
type ActiveTenantCounter interface {
	GetActiveTenantCount() (int, error)
}

// SystemHandlers serves liveness and runtime log level control.
type SystemHandlers struct {
	tenants     ActiveTenantCounter
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	startedAt   time.Time
}

func NewSystemHandlers(tenants ActiveTenantCounter, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{
		tenants:     tenants,
		broadcaster: broadcaster,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// GetHealth handles GET /health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.tenants != nil {
		count, err := h.tenants.GetActiveTenantCount()
		if err != nil {
			h.logger.Tenant().Warn("Health check could not count tenants", "error", err.Error())
			body["status"] = "degraded"
		} else {
			body["activeTenants"] = count
		}
	}
	if h.broadcaster != nil {
		body["logViewers"] = h.broadcaster.ClientCount()
	}
	body["pools"] = tenant.GetPoolStats()
	c.JSON(http.StatusOK, body)
}

// GetLogLevels handles GET /api/v1/network/logging/levels
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	respondOK(c, http.StatusOK, h.logger.GetChannelLevels())
}

// SetLogLevel handles PUT /api/v1/network/logging/levels
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "channel and level are required")
		return
	}

	var level slog.Level
	switch strings.ToUpper(req.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		respondInvalid(c, "invalid log level specified")
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		respondInvalid(c, err.Error())
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, strings.ToUpper(req.Level))})
}
