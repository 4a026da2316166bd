package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// BatchRequest asks for several posts to be copied from one tenant to
// another with shared options.
type BatchRequest struct {
	SourceTenant string
	DestTenant   string
	PostIDs      []int64
	Options      CrossTenantOptions
	// ItemTimeout bounds each item; zero means no limit.
	ItemTimeout time.Duration
}

type BatchSuccess struct {
	SourcePostID      int64 `json:"sourcePostId"`
	DestinationPostID int64 `json:"destinationPostId"`
}

type BatchError struct {
	SourcePostID int64  `json:"sourcePostId"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// BatchResult reports every item of a batch.
type BatchResult struct {
	BatchID string         `json:"batchId"`
	Success []BatchSuccess `json:"success"`
	Errors  []BatchError   `json:"errors"`
}

// BulkResult reports a single-tenant bulk duplication.
type BulkResult struct {
	BatchID    string       `json:"batchId"`
	Duplicated int          `json:"duplicated"`
	Errors     int          `json:"errors"`
	NewIDs     []int64      `json:"newIds"`
	Failures   []BatchError `json:"failures,omitempty"`
}

// BulkService runs duplications over lists of posts. Items run one after
// another and a failed item never stops its siblings.
type BulkService struct {
	crossTenant *CrossTenantService
	single      *DuplicateService
	oplog       *OplogService
	pipeline    Pipeline
}

func NewBulkService(crossTenant *CrossTenantService, single *DuplicateService, oplog *OplogService, pipeline Pipeline) *BulkService {
	if pipeline.Logger == nil {
		pipeline.Logger = logging.NewNopLogger()
	}
	return &BulkService{crossTenant: crossTenant, single: single, oplog: oplog, pipeline: pipeline}
}

// DuplicateBatch copies every requested post across tenants, logging each
// outcome to the operation log.
func (s *BulkService) DuplicateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	const op = "duplicate.batch"
	if req.SourceTenant == "" || req.DestTenant == "" || len(req.PostIDs) == 0 {
		return nil, errkind.Errorf(errkind.ValidationFailed, op, "source tenant, destination tenant and post ids are required")
	}

	result := &BatchResult{
		BatchID: security.GenerateULID(),
		Success: []BatchSuccess{},
		Errors:  []BatchError{},
	}
	log := s.pipeline.Logger.WithTenantAndOperation(logging.ChannelDuplication, req.DestTenant, op).
		With("batchId", result.BatchID, "sourceTenant", req.SourceTenant)
	log.Info("Batch started", "items", len(req.PostIDs))

	// log entries outlive a cancelled request
	logCtx := context.WithoutCancel(ctx)

	for _, postID := range req.PostIDs {
		newID, err := s.runItem(ctx, req, postID)
		fields := map[string]any{
			"batchId":           result.BatchID,
			"sourcePostId":      postID,
			"sourceTenant":      req.SourceTenant,
			"destinationTenant": req.DestTenant,
		}

		if err != nil {
			kind := errkind.KindOf(err)
			result.Errors = append(result.Errors, BatchError{
				SourcePostID: postID,
				Code:         string(kind),
				Message:      err.Error(),
			})
			fields["error"] = err.Error()
			fields["code"] = string(kind)
			if logErr := s.oplog.Error(logCtx, req.DestTenant,
				fmt.Sprintf("Failed to duplicate post %d from %s to %s", postID, req.SourceTenant, req.DestTenant), fields); logErr != nil {
				log.Warn("Failed to record batch item", "sourcePostId", postID, "error", logErr)
			}
			continue
		}

		result.Success = append(result.Success, BatchSuccess{SourcePostID: postID, DestinationPostID: newID})
		fields["destinationPostId"] = newID
		if logErr := s.oplog.Success(logCtx, req.DestTenant,
			fmt.Sprintf("Successfully duplicated post %d from %s to %s (new ID: %d)", postID, req.SourceTenant, req.DestTenant, newID), fields); logErr != nil {
			log.Warn("Failed to record batch item", "sourcePostId", postID, "error", logErr)
		}

		s.pipeline.publish(events.AfterBulkDuplicateItem, events.BulkItemPayload{
			BatchID:      result.BatchID,
			NewID:        newID,
			OldID:        postID,
			SourceTenant: req.SourceTenant,
			DestTenant:   req.DestTenant,
		})
	}

	s.publishSummary(result.BatchID, ModeCrossTenant, req.SourceTenant, req.DestTenant, len(req.PostIDs), successIDs(result.Success), result.Errors)
	log.Info("Batch finished", "succeeded", len(result.Success), "failed", len(result.Errors))

	return result, nil
}

func (s *BulkService) runItem(ctx context.Context, req BatchRequest, postID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errkind.E(errkind.Internal, "duplicate.batch", err)
	}
	itemCtx := ctx
	if req.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, req.ItemTimeout)
		defer cancel()
	}
	return s.crossTenant.DuplicatePost(itemCtx, postID, req.SourceTenant, req.DestTenant, req.Options)
}

// DuplicateMany copies each post within one tenant.
func (s *BulkService) DuplicateMany(ctx context.Context, tenantCtx *tenant.Context, postIDs []int64, actingUserID int64) (*BulkResult, error) {
	const op = "duplicate.bulk"
	if len(postIDs) == 0 {
		return nil, errkind.Errorf(errkind.ValidationFailed, op, "post ids are required")
	}

	result := &BulkResult{BatchID: security.GenerateULID(), NewIDs: []int64{}}

	for _, postID := range postIDs {
		if err := ctx.Err(); err != nil {
			result.Errors++
			result.Failures = append(result.Failures, BatchError{SourcePostID: postID, Code: string(errkind.Internal), Message: err.Error()})
			continue
		}

		newID, err := s.single.Duplicate(ctx, tenantCtx, postID, actingUserID)
		if err != nil {
			result.Errors++
			result.Failures = append(result.Failures, BatchError{
				SourcePostID: postID,
				Code:         string(errkind.KindOf(err)),
				Message:      err.Error(),
			})
			continue
		}

		result.Duplicated++
		result.NewIDs = append(result.NewIDs, newID)
		s.pipeline.publish(events.AfterBulkDuplicateItem, events.BulkItemPayload{
			BatchID:      result.BatchID,
			NewID:        newID,
			OldID:        postID,
			SourceTenant: tenantCtx.TenantID,
			DestTenant:   tenantCtx.TenantID,
		})
	}

	s.publishSummary(result.BatchID, ModeSingle, tenantCtx.TenantID, tenantCtx.TenantID, len(postIDs), result.NewIDs, result.Failures)
	s.pipeline.Logger.WithTenantAndOperation(logging.ChannelDuplication, tenantCtx.TenantID, op).
		Info("Bulk duplication finished", "batchId", result.BatchID, "duplicated", result.Duplicated, "errors", result.Errors)

	return result, nil
}

func (s *BulkService) publishSummary(batchID, mode, sourceTenant, destTenant string, requested int, newIDs []int64, failures []BatchError) {
	payload := events.BulkPayload{
		BatchID:      batchID,
		Mode:         mode,
		SourceTenant: sourceTenant,
		DestTenant:   destTenant,
		Requested:    requested,
		Succeeded:    len(newIDs),
		Failed:       len(failures),
		NewIDs:       newIDs,
	}
	for _, f := range failures {
		payload.Failures = append(payload.Failures, events.BulkFailure{
			SourcePostID: f.SourcePostID,
			Code:         f.Code,
			Message:      f.Message,
		})
	}
	s.pipeline.publish(events.AfterBulkDuplicate, payload)
}

func successIDs(items []BatchSuccess) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.DestinationPostID
	}
	return ids
}
