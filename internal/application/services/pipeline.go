package services

import (
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
)

// Duplication modes as reported to metrics and bulk summaries.
const (
	ModeCrossTenant = "cross_tenant"
	ModeSingle      = "single"
)

// Duplication outcomes reported to metrics.
const (
	outcomeSuccess = "success"
	outcomePartial = "partial"
	outcomeFailed  = "failed"
)

// Pipeline bundles the collaborators shared by the duplication services.
// Events, Perf and Metrics may be nil.
type Pipeline struct {
	Slugs    *SlugResolver
	Media    *MediaReplicator
	Taxonomy *TaxonomyMigrator
	Meta     *MetaMigrator
	Events   events.Publisher
	Logger   *logging.ChanneledLogger
	Perf     *performance.Tracker
	Metrics  *metrics.Metrics
}

// NewPipeline wires the default collaborators around one logger.
func NewPipeline(logger *logging.ChanneledLogger, publisher events.Publisher, perf *performance.Tracker, m *metrics.Metrics) Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	slugs := NewSlugResolver()
	return Pipeline{
		Slugs:    slugs,
		Media:    NewMediaReplicator(slugs, logger, m),
		Taxonomy: NewTaxonomyMigrator(logger),
		Meta:     NewMetaMigrator(logger),
		Events:   publisher,
		Logger:   logger,
		Perf:     perf,
		Metrics:  m,
	}
}

func (p Pipeline) publish(eventType string, payload any) {
	if p.Events == nil {
		return
	}
	p.Events.Publish(events.Event{Type: eventType, Payload: payload})
}

func (p Pipeline) startMarker(operation, tenantID string) *performance.Marker {
	if p.Perf == nil {
		return &performance.Marker{
			Operation: operation,
			TenantID:  tenantID,
			StartTime: time.Now(),
			Success:   true,
		}
	}
	return p.Perf.StartOperation(operation, tenantID)
}
