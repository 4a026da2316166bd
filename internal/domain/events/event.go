// Package events provides the extensibility hooks fired by the duplication
// pipelines. Handlers are fire-and-forget; nothing they return is consumed.
package events

import "time"

// Hook names.
const (
	AfterDuplicate            = "after_duplicate"
	AfterCrossTenantDuplicate = "after_cross_tenant_duplicate"
	AfterBulkDuplicateItem    = "after_bulk_duplicate_item"
	AfterBulkDuplicate        = "after_bulk_duplicate"
)

// Event is one hook notification.
type Event struct {
	ID         string
	Type       string
	OccurredAt time.Time
	Payload    any
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(event Event)
}

// Handler receives published events.
type Handler func(event Event)

type DuplicatePayload struct {
	NewID int64
	OldID int64
}

type CrossTenantPayload struct {
	NewID        int64
	OldID        int64
	SourceTenant string
	DestTenant   string
}

// BulkItemPayload is sent after each successful item of a bulk run.
type BulkItemPayload struct {
	BatchID      string
	NewID        int64
	OldID        int64
	SourceTenant string
	DestTenant   string
}

// BulkPayload summarises a finished bulk run.
type BulkPayload struct {
	BatchID      string
	Mode         string
	SourceTenant string
	DestTenant   string
	Requested    int
	Succeeded    int
	Failed       int
	NewIDs       []int64
	Failures     []BulkFailure
}

type BulkFailure struct {
	SourcePostID int64
	Code         string
	Message      string
}
