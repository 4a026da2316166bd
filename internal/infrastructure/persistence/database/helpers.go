// Package database provides database helper functions
package database

import (
	"strings"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/pkg/config"
)

// GetSlowQueryThreshold returns the configured slow query threshold
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery checks if a query duration exceeds threshold
// and logs it using the slow query channel if it does
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration, tenantID string) {
	if logger == nil {
		return
	}
	threshold := GetSlowQueryThreshold()

	// batch work gets more headroom
	if strings.HasPrefix(query, "BULK_") {
		threshold *= 3
	}

	if duration > threshold {
		logger.LogSlowQuery(query, duration, tenantID)
	}
}
