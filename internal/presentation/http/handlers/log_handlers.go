package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	defaultLogLimit = 50
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = 50 * time.Second
)

// LogHandlers exposes the operation log.
type LogHandlers struct {
	oplog       *services.OplogService
	broadcaster messaging.Broadcaster
	upgrader    websocket.Upgrader
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewLogHandlers creates log handlers. CORS already gates browser origins,
// so the upgrader accepts any origin that reached it.
func NewLogHandlers(oplog *services.OplogService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LogHandlers {
	return &LogHandlers{
		oplog:       oplog,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetLogs handles GET /api/v1/network/logs
func (h *LogHandlers) GetLogs(c *gin.Context) {
	marker := h.perfTracker.StartOperation("handler_get_logs", "network")
	defer marker.Complete()

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLogLimit
	}

	fetch := h.oplog.Recent
	if c.Query("errors") == "1" {
		fetch = h.oplog.Errors
	}

	entries, err := fetch(c.Request.Context(), limit)
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelDatabase, "get_logs", err, "", nil)
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// DeleteLogs handles DELETE /api/v1/network/logs
func (h *LogHandlers) DeleteLogs(c *gin.Context) {
	marker := h.perfTracker.StartOperation("handler_delete_logs", "network")
	defer marker.Complete()

	if err := h.oplog.Clear(c.Request.Context()); err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelDatabase, "clear_logs", err, "", nil)
		respondError(c, err)
		return
	}

	h.logger.System().Info("Operation log cleared")
	respondOK(c, http.StatusOK, gin.H{"cleared": true})
}

// StreamLogs handles GET /api/v1/network/logs/stream, pushing each new
// entry to the websocket as JSON.
func (h *LogHandlers) StreamLogs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.HTTP().Warn("Log stream upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	client := h.broadcaster.AddClient()
	defer h.broadcaster.RemoveClient(client)

	h.logger.HTTP().Info("Log stream connected", "remoteAddr", c.ClientIP(), "clients", h.broadcaster.ClientCount())

	// The read side only services control frames and notices the close.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.logger.HTTP().Info("Log stream disconnected", "remoteAddr", c.ClientIP())
			return
		case <-c.Request.Context().Done():
			return
		case entry, ok := <-client:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(streamWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(entry); err != nil {
				h.logger.HTTP().Debug("Log stream write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
