package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// singleSkipKeys are not copied by the generic meta pass; the page template
// is re-applied separately.
var singleSkipKeys = map[string]bool{
	content.MetaDuplicatedFrom:       true,
	content.MetaDuplicatedFromTenant: true,
	content.MetaEditLock:             true,
	content.MetaEditLast:             true,
	content.MetaOldSlug:              true,
	content.MetaPageTemplate:         true,
}

// SettingsProvider supplies the installation settings to the duplicator.
type SettingsProvider interface {
	Get() (*content.Settings, error)
}

// DuplicateService copies a post within one tenant's store.
type DuplicateService struct {
	settings SettingsProvider
	pipeline Pipeline
	now      func() time.Time
}

func NewDuplicateService(settings SettingsProvider, pipeline Pipeline) *DuplicateService {
	if pipeline.Logger == nil {
		pipeline.Logger = logging.NewNopLogger()
	}
	return &DuplicateService{settings: settings, pipeline: pipeline, now: time.Now}
}

// WithClock replaces the clock used for dates and SKUs.
func (s *DuplicateService) WithClock(now func() time.Time) *DuplicateService {
	clone := *s
	clone.now = now
	return &clone
}

// DuplicateTitle appends the copy marker to a title.
func DuplicateTitle(title string) string {
	return title + " (Copy)"
}

// DuplicateStatus applies the post_status setting.
func DuplicateStatus(original string, settings *content.Settings) string {
	if settings == nil || settings.PostStatus == "" || settings.PostStatus == StatusSame {
		return original
	}
	return settings.PostStatus
}

// DuplicateDate applies the post_date and offset settings to the source
// date. The offset is subtracted for "older" and added otherwise.
func DuplicateDate(original, now time.Time, settings *content.Settings) time.Time {
	if settings == nil {
		return original
	}
	date := original
	if settings.PostDate == PostDateCurrent {
		date = now
	}
	if !settings.OffsetDate {
		return date
	}

	offset := time.Duration(settings.OffsetDays)*24*time.Hour +
		time.Duration(settings.OffsetHours)*time.Hour +
		time.Duration(settings.OffsetMinutes)*time.Minute +
		time.Duration(settings.OffsetSeconds)*time.Second

	if settings.OffsetDirection == OffsetNewer {
		return date.Add(offset)
	}
	return date.Add(-offset)
}

// Duplicate copies postID inside tenantCtx and returns the new post id.
// actingUserID authors the copy; zero keeps the source author.
func (s *DuplicateService) Duplicate(ctx context.Context, tenantCtx *tenant.Context, postID, actingUserID int64) (int64, error) {
	const op = "duplicate.single"
	start := time.Now()

	marker := s.pipeline.startMarker(op, tenantCtx.TenantID)
	marker.AddMetadata("sourcePostId", postID)
	defer marker.Complete()

	newID, err := s.duplicate(ctx, tenantCtx, postID, actingUserID)
	if err != nil {
		marker.SetError(err)
		s.pipeline.Metrics.RecordDuplication(ModeSingle, outcomeFailed, time.Since(start))
		s.pipeline.Logger.LogError(logging.ChannelDuplication, op, err, tenantCtx.TenantID, map[string]any{
			"sourcePostId": postID,
		})
		return 0, err
	}

	s.pipeline.Metrics.RecordDuplication(ModeSingle, outcomeSuccess, time.Since(start))
	return newID, nil
}

func (s *DuplicateService) duplicate(ctx context.Context, tenantCtx *tenant.Context, postID, actingUserID int64) (int64, error) {
	const op = "duplicate.single"

	if postID <= 0 {
		return 0, errkind.Errorf(errkind.ValidationFailed, op, "post id is required")
	}

	postRepo := tenantCtx.PostRepo()
	source, err := postRepo.FindByID(postID)
	if err != nil {
		return 0, errkind.E(errkind.Internal, op, err)
	}
	if source == nil {
		return 0, errkind.Errorf(errkind.NotFound, op, "post %d not found", postID)
	}

	settings, err := s.settings.Get()
	if err != nil {
		return 0, errkind.E(errkind.Internal, op, err)
	}

	slug, err := s.pipeline.Slugs.ResolveSlug(tenantCtx, BaseSlug(source), source.Type, 0)
	if err != nil {
		return 0, errkind.E(errkind.Internal, op, err)
	}

	if err := ctx.Err(); err != nil {
		return 0, errkind.E(errkind.Internal, op, err)
	}

	author := actingUserID
	if author <= 0 {
		author = source.AuthorID
	}

	newID, err := postRepo.Create(&content.Post{
		Type:          source.Type,
		Title:         DuplicateTitle(source.Title),
		Content:       source.Content,
		Excerpt:       source.Excerpt,
		Status:        DuplicateStatus(source.Status, settings),
		AuthorID:      author,
		Date:          DuplicateDate(source.Date, s.now().UTC(), settings),
		Slug:          slug,
		ParentID:      source.ParentID,
		CommentStatus: source.CommentStatus,
		PingStatus:    source.PingStatus,
	})
	if err != nil {
		return 0, errkind.E(errkind.CreationFailed, op, err)
	}

	log := s.pipeline.Logger.WithTenantAndOperation(logging.ChannelDuplication, tenantCtx.TenantID, op).
		With("sourcePostId", postID, "postId", newID)

	if err := s.copyMeta(tenantCtx, source, newID); err != nil {
		log.Warn("Failed to copy meta", "error", err)
	}
	if source.Type == content.TypeProduct {
		if err := s.resetProduct(tenantCtx, source.ID, newID); err != nil {
			log.Warn("Failed to reset product fields", "error", err)
		}
	}
	if err := copyTermsInPlace(tenantCtx, source, newID); err != nil {
		log.Warn("Failed to copy terms", "error", err)
	}
	if source.CoverID > 0 {
		if err := postRepo.SetCover(newID, source.CoverID); err != nil {
			log.Warn("Failed to copy cover image", "error", err)
		}
	}
	if err := tenantCtx.MetaRepo().Set(newID, content.MetaDuplicatedFrom, metavalue.Int(source.ID)); err != nil {
		log.Warn("Failed to record provenance", "error", err)
	}

	s.pipeline.publish(events.AfterDuplicate, events.DuplicatePayload{NewID: newID, OldID: source.ID})

	log.Info("Post duplicated")
	return newID, nil
}

func (s *DuplicateService) copyMeta(tenantCtx *tenant.Context, source *content.Post, newID int64) error {
	metaRepo := tenantCtx.MetaRepo()
	entries, err := metaRepo.FindAll(source.ID)
	if err != nil {
		return fmt.Errorf("failed to load meta: %w", err)
	}

	var template *content.MetaEntry
	var builder []*content.MetaEntry
	for _, entry := range entries {
		switch {
		case entry.Key == content.MetaPageTemplate:
			if template == nil {
				template = entry
			}
			continue
		case singleSkipKeys[entry.Key]:
			continue
		case entry.Key == content.MetaBuilderData:
			builder = append(builder, entry)
		}

		value := ReplacePostID(entry.Value, source.ID, newID)
		if err := metaRepo.Add(newID, entry.Key, value); err != nil {
			return fmt.Errorf("failed to copy meta %s: %w", entry.Key, err)
		}
	}

	if template != nil && template.Value.Text() != "" {
		if err := metaRepo.Set(newID, content.MetaPageTemplate, template.Value); err != nil {
			return fmt.Errorf("failed to copy page template: %w", err)
		}
	}

	if len(builder) > 0 {
		doc := RewriteBuilderIDs(builder[0].Value, source.ID, newID)
		if err := metaRepo.Set(newID, content.MetaBuilderData, doc); err != nil {
			return fmt.Errorf("failed to update builder data: %w", err)
		}
	}
	return nil
}

// ReplacePostID substitutes the decimal text of oldID with newID inside every
// string leaf. This is a plain substring replacement: any unrelated number
// that contains the old id's digits is rewritten as well.
func ReplacePostID(v metavalue.Value, oldID, newID int64) metavalue.Value {
	return metavalue.ReplaceAll(v, strconv.FormatInt(oldID, 10), strconv.FormatInt(newID, 10))
}

// RewriteBuilderIDs rewrites a page-builder document: "id" and "post_id"
// fields equal to oldID become newID, and other strings get the
// ReplacePostID substitution. JSON held in a string stays a string.
func RewriteBuilderIDs(v metavalue.Value, oldID, newID int64) metavalue.Value {
	s, isString := v.Str()
	if isString {
		doc, err := metavalue.Parse([]byte(s))
		if err != nil {
			return ReplacePostID(v, oldID, newID)
		}
		return metavalue.String(metavalue.Encode(rewriteBuilderNode(doc, oldID, newID)))
	}
	return rewriteBuilderNode(v, oldID, newID)
}

func rewriteBuilderNode(doc metavalue.Value, oldID, newID int64) metavalue.Value {
	oldText := strconv.FormatInt(oldID, 10)
	newText := strconv.FormatInt(newID, 10)

	return metavalue.Walk(doc, func(key string, node metavalue.Value) metavalue.Value {
		if key == "id" || key == "post_id" {
			if n, ok := node.Int64(); ok && n == oldID {
				return metavalue.Int(newID)
			}
		}
		if str, ok := node.Str(); ok && strings.Contains(str, oldText) {
			return metavalue.String(strings.ReplaceAll(str, oldText, newText))
		}
		return node
	})
}

// resetProduct gives the copy a fresh SKU, empties managed stock and drops
// download counters.
func (s *DuplicateService) resetProduct(tenantCtx *tenant.Context, sourceID, newID int64) error {
	metaRepo := tenantCtx.MetaRepo()

	skus, err := metaRepo.FindByKey(sourceID, content.MetaSKU)
	if err != nil {
		return err
	}
	if len(skus) > 0 {
		if sku := skus[0].Value.Text(); sku != "" {
			newSKU, err := s.uniqueSKU(tenantCtx, sku, newID)
			if err != nil {
				return err
			}
			if err := metaRepo.Set(newID, content.MetaSKU, metavalue.String(newSKU)); err != nil {
				return err
			}
		}
	}

	manage, err := metaRepo.FindByKey(sourceID, content.MetaManageStock)
	if err != nil {
		return err
	}
	if len(manage) > 0 && manage[0].Value.Text() == "yes" {
		if err := metaRepo.Set(newID, content.MetaStock, metavalue.String("0")); err != nil {
			return err
		}
		if err := metaRepo.Set(newID, content.MetaStockStatus, metavalue.String("outofstock")); err != nil {
			return err
		}
	}

	return metaRepo.DeleteKey(newID, content.MetaDownloadCount)
}

// uniqueSKU tries "{sku}-copy-{unix}", then "-{n}" variants up to
// maxSlugAttempts, then a ULID.
func (s *DuplicateService) uniqueSKU(tenantCtx *tenant.Context, sku string, newID int64) (string, error) {
	metaRepo := tenantCtx.MetaRepo()
	base := fmt.Sprintf("%s-copy-%d", sku, s.now().Unix())

	taken, err := metaRepo.ValueExists(content.MetaSKU, base, newID)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		taken, err := metaRepo.ValueExists(content.MetaSKU, candidate, newID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s-copy-%s", sku, strings.ToLower(security.GenerateULID())), nil
}

// copyTermsInPlace reuses the source's term ids on the copy, per taxonomy.
func copyTermsInPlace(tenantCtx *tenant.Context, source *content.Post, newID int64) error {
	termRepo := tenantCtx.TermRepo()
	taxonomies, err := termRepo.TaxonomiesFor(source.Type)
	if err != nil {
		return err
	}

	for _, tax := range taxonomies {
		terms, err := termRepo.FindForPost(source.ID, tax.Name)
		if err != nil {
			return err
		}
		if len(terms) == 0 {
			continue
		}
		ids := make([]int64, len(terms))
		for i, t := range terms {
			ids[i] = t.ID
		}
		if err := termRepo.SetForPost(newID, tax.Name, ids); err != nil {
			return err
		}
	}
	return nil
}
