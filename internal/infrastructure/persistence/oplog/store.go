// Package oplog stores the installation-wide operation log: a bounded list of
// the most recent duplication outcomes, newest first.
package oplog

import (
	"context"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
)

// Capacity is the number of entries kept; older entries are evicted first.
const Capacity = 100

// Store is implemented by every operation log backend. Append must
// serialise concurrent writers because it is a read-append-truncate.
type Store interface {
	Append(ctx context.Context, entry *content.LogEntry) error
	// Recent returns at most limit entries, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]*content.LogEntry, error)
	Clear(ctx context.Context) error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > Capacity {
		return Capacity
	}
	return limit
}
