package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/oplog"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
)

// DefaultLogLimit is the number of entries returned when no limit is given.
const DefaultLogLimit = 50

// OplogService records duplication outcomes in the installation's bounded
// operation log and forwards them to live viewers.
type OplogService struct {
	store       oplog.Store
	broadcaster messaging.Broadcaster
	metrics     *metrics.Metrics
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

// NewOplogService creates the service. broadcaster and m may be nil.
func NewOplogService(store oplog.Store, broadcaster messaging.Broadcaster, m *metrics.Metrics, logger *logging.ChanneledLogger) *OplogService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OplogService{
		store:       store,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Success appends a success entry.
func (s *OplogService) Success(ctx context.Context, tenantID, message string, fields map[string]any) error {
	return s.Append(ctx, content.LogTypeSuccess, tenantID, message, fields)
}

// Error appends an error entry.
func (s *OplogService) Error(ctx context.Context, tenantID, message string, fields map[string]any) error {
	return s.Append(ctx, content.LogTypeError, tenantID, message, fields)
}

// Append stores one entry. A failed append is logged and returned but never
// affects the duplication it describes.
func (s *OplogService) Append(ctx context.Context, entryType, tenantID, message string, fields map[string]any) error {
	entry := &content.LogEntry{
		ID:        security.GenerateULID(),
		Timestamp: s.now().UTC(),
		Message:   message,
		Type:      entryType,
		Context:   fields,
		TenantID:  tenantID,
	}

	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.LogError(logging.ChannelSystem, "oplog.append", err, tenantID, map[string]any{"message": message})
		return fmt.Errorf("failed to append operation log: %w", err)
	}

	s.metrics.RecordOplog(entryType)
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(entry)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *OplogService) Recent(ctx context.Context, limit int) ([]*content.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	entries, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}
	return entries, nil
}

// Errors returns up to limit non-success entries from the newest 2*limit.
func (s *OplogService) Errors(ctx context.Context, limit int) ([]*content.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	entries, err := s.store.Recent(ctx, limit*2)
	if err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	errs := make([]*content.LogEntry, 0, limit)
	for _, e := range entries {
		if e.Type == content.LogTypeSuccess {
			continue
		}
		errs = append(errs, e)
		if len(errs) >= limit {
			break
		}
	}
	return errs, nil
}

// Clear empties the log.
func (s *OplogService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear operation log: %w", err)
	}
	s.logger.System().Info("Operation log cleared")
	return nil
}
