package middleware

import (
	"strconv"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/metrics"
	"github.com/gin-gonic/gin"
)

// RequestMetrics records request counts and latency per route template and
// logs each request on the http channel.
func RequestMetrics(m *metrics.Metrics, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		}

		logger.HTTP().Debug("Request served",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		)
	}
}
