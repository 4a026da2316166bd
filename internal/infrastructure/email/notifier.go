package email

import (
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
)

// Notifier mails a summary after every bulk duplication.
type Notifier struct {
	service Service
	to      string
	logger  *logging.ChanneledLogger
}

func NewNotifier(service Service, to string, logger *logging.ChanneledLogger) *Notifier {
	return &Notifier{service: service, to: to, logger: logger}
}

// HandleBulkDuplicate is an events.Handler for events.AfterBulkDuplicate.
func (n *Notifier) HandleBulkDuplicate(event events.Event) {
	payload, ok := event.Payload.(events.BulkPayload)
	if !ok {
		return
	}

	summary := templates.BulkSummaryProps{
		BatchID:      payload.BatchID,
		SourceTenant: payload.SourceTenant,
		DestTenant:   payload.DestTenant,
		Requested:    payload.Requested,
		Succeeded:    payload.Succeeded,
		Failed:       payload.Failed,
	}
	for _, f := range payload.Failures {
		summary.Failures = append(summary.Failures, templates.FailureLine{
			SourcePostID: f.SourcePostID,
			Code:         f.Code,
			Message:      f.Message,
		})
	}

	if err := n.service.SendBulkSummary(n.to, summary); err != nil {
		n.logger.LogError(logging.ChannelSystem, "send_bulk_summary", err, payload.DestTenant,
			map[string]any{"batchId": payload.BatchID})
		return
	}
	n.logger.System().Info("Bulk duplication summary sent", "batchId", payload.BatchID, "to", n.to)
}
