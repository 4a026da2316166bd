package services

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// Media copy outcomes reported to metrics.
const (
	mediaCopied       = "copied"
	mediaDeduplicated = "deduplicated"
	mediaFailed       = "failed"
)

// MediaReplicator copies attachments, their files and renditions between
// tenants.
type MediaReplicator struct {
	slugs   *SlugResolver
	logger  *logging.ChanneledLogger
	metrics *metrics.Metrics
}

// NewMediaReplicator creates a replicator. metrics may be nil.
func NewMediaReplicator(slugs *SlugResolver, logger *logging.ChanneledLogger, m *metrics.Metrics) *MediaReplicator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MediaReplicator{slugs: slugs, logger: logger, metrics: m}
}

type sourceAsset struct {
	attachment *content.Attachment
	meta       []*content.MetaEntry
	processor  *media.ImageProcessor
}

// Processor builds the rendition generator for a tenant's media library.
func Processor(tenantCtx *tenant.Context) *media.ImageProcessor {
	specs := tenantCtx.Config.Sizes()
	sizes := make([]media.Size, len(specs))
	for i, s := range specs {
		sizes[i] = media.Size{Name: s.Name, Width: s.Width, Height: s.Height, Crop: s.Crop}
	}
	return media.NewImageProcessor(tenantCtx.Config.MediaRoot, sizes)
}

// CopyMedia replicates attachment assetID from sourceTenant to destTenant and
// returns the destination attachment id. An attachment already present on
// the destination with the same filename and dimensions is reused.
func (m *MediaReplicator) CopyMedia(sw *tenant.Switcher, assetID int64, sourceTenant, destTenant string) (int64, error) {
	const op = "media.copy"
	log := m.logger.WithTenantAndOperation(logging.ChannelMedia, destTenant, op)

	src, err := tenant.Within(sw, sourceTenant, func(ctx *tenant.Context) (*sourceAsset, error) {
		att, err := ctx.AttachmentRepo().FindByID(assetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attachment %d: %w", assetID, err)
		}
		if att == nil {
			return nil, errkind.Errorf(errkind.NotFound, op, "attachment %d not found on %s", assetID, sourceTenant)
		}

		processor := Processor(ctx)
		if att.File == "" || !processor.Exists(att.File) {
			return nil, errkind.Errorf(errkind.NotFound, op, "file for attachment %d is missing on %s", assetID, sourceTenant)
		}

		meta, err := ctx.MetaRepo().FindAll(assetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attachment meta: %w", err)
		}
		return &sourceAsset{attachment: att, meta: meta, processor: processor}, nil
	})
	if err != nil {
		m.metrics.RecordMediaCopy(mediaFailed)
		return 0, err
	}

	filename := path.Base(src.attachment.File)
	var newID int64

	err = sw.Run(destTenant, func(ctx *tenant.Context) error {
		existingID, err := m.findDuplicate(ctx, filename, src.attachment.Metadata)
		if err != nil {
			return err
		}
		if existingID > 0 {
			log.Debug("Reusing existing attachment", "sourceId", assetID, "attachmentId", existingID, "file", filename)
			m.metrics.RecordMediaCopy(mediaDeduplicated)
			newID = existingID
			return nil
		}

		newID, err = m.replicate(ctx, src, filename)
		return err
	})
	if err != nil {
		m.metrics.RecordMediaCopy(mediaFailed)
		m.logger.LogError(logging.ChannelMedia, op, err, destTenant, map[string]any{
			"sourceTenant": sourceTenant,
			"sourceId":     assetID,
		})
		return 0, err
	}

	return newID, nil
}

// findDuplicate looks for an attachment stored under filename, or under a
// "-N" variant uniquePath gave it, whose dimensions match md.
func (m *MediaReplicator) findDuplicate(ctx *tenant.Context, filename string, md *content.AttachmentMetadata) (int64, error) {
	stem := strings.TrimSuffix(filename, path.Ext(filename))
	ids, err := ctx.PostRepo().FindAttachmentsByGUIDFragment("/" + stem)
	if err != nil {
		return 0, fmt.Errorf("failed to look up existing attachment: %w", err)
	}

	var srcW, srcH int
	if md != nil {
		srcW, srcH = md.Width, md.Height
	}

	for _, id := range ids {
		existing, err := ctx.AttachmentRepo().FindByID(id)
		if err != nil {
			return 0, fmt.Errorf("failed to load attachment %d: %w", id, err)
		}
		if existing == nil || !isNameVariant(path.Base(existing.File), filename) {
			continue
		}

		var dstW, dstH int
		if existing.Metadata != nil {
			dstW, dstH = existing.Metadata.Width, existing.Metadata.Height
		}
		if srcW == dstW && srcH == dstH {
			return id, nil
		}
	}
	return 0, nil
}

// isNameVariant reports whether base is filename or filename with a
// numeric "-N" inserted before the extension.
func isNameVariant(base, filename string) bool {
	if base == filename {
		return true
	}
	ext := path.Ext(filename)
	prefix := strings.TrimSuffix(filename, ext) + "-"
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, ext) {
		return false
	}
	n := strings.TrimSuffix(strings.TrimPrefix(base, prefix), ext)
	if n == "" {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (m *MediaReplicator) replicate(ctx *tenant.Context, src *sourceAsset, filename string) (int64, error) {
	const op = "media.copy"
	att := src.attachment
	processor := Processor(ctx)

	relPath := uniquePath(processor, path.Join(subdir(att), filename))
	relDir := path.Dir(relPath)

	copied := []string{relPath}
	if err := media.CopyFile(src.processor.Path(att.File), processor.Path(relPath)); err != nil {
		return 0, errkind.E(errkind.CopyFailed, op, err)
	}

	if att.Metadata != nil {
		srcDir := path.Dir(att.File)
		oldStem := strings.TrimSuffix(filename, path.Ext(filename))
		newBase := path.Base(relPath)
		newStem := strings.TrimSuffix(newBase, path.Ext(newBase))
		for _, r := range att.Metadata.Sizes {
			from := path.Join(srcDir, r.File)
			if !src.processor.Exists(from) {
				continue
			}
			// renditions follow the renamed file
			to := path.Join(relDir, newStem+strings.TrimPrefix(r.File, oldStem))
			if err := media.CopyFile(src.processor.Path(from), processor.Path(to)); err != nil {
				removeAll(processor, copied)
				return 0, errkind.E(errkind.CopyFailed, op, err)
			}
			copied = append(copied, to)
		}
	}

	slug, err := m.slugs.ResolveSlug(ctx, BaseSlug(att.Post), content.TypeAttachment, 0)
	if err != nil {
		removeAll(processor, copied)
		return 0, err
	}

	mimeType := att.Post.MimeType
	if mimeType == "" {
		mimeType = media.MimeType(filename)
	}

	newID, err := ctx.AttachmentRepo().Create(&content.Attachment{
		Post: &content.Post{
			Type:          content.TypeAttachment,
			Title:         att.Post.Title,
			Content:       att.Post.Content,
			Excerpt:       att.Post.Excerpt,
			Status:        content.StatusInherit,
			AuthorID:      att.Post.AuthorID,
			Date:          att.Post.Date,
			Slug:          slug,
			CommentStatus: att.Post.CommentStatus,
			PingStatus:    att.Post.PingStatus,
			MimeType:      mimeType,
			GUID:          ctx.Config.MediaURL(relPath),
		},
		File:     relPath,
		Metadata: &content.AttachmentMetadata{File: relPath},
	})
	if err != nil {
		removeAll(processor, copied)
		return 0, errkind.E(errkind.CreationFailed, op, err)
	}

	log := m.logger.WithTenantAndOperation(logging.ChannelMedia, ctx.TenantID, op)

	md, err := processor.GenerateMetadata(relPath, mimeType)
	if err != nil {
		log.Warn("Failed to regenerate renditions", "attachmentId", newID, "error", err)
	} else if err := ctx.AttachmentRepo().UpdateMetadata(newID, md); err != nil {
		log.Warn("Failed to store attachment metadata", "attachmentId", newID, "error", err)
	}

	metaRepo := ctx.MetaRepo()
	for _, entry := range src.meta {
		if entry.Key == content.MetaAttachedFile || entry.Key == content.MetaAttachmentMetadata {
			continue
		}
		if err := metaRepo.Add(newID, entry.Key, entry.Value); err != nil {
			log.Warn("Failed to copy attachment meta", "attachmentId", newID, "key", entry.Key, "error", err)
		}
	}

	m.metrics.RecordMediaCopy(mediaCopied)
	log.Info("Attachment replicated", "attachmentId", newID, "file", relPath, "files", len(copied))

	return newID, nil
}

// subdir mirrors the source's year/month layout from its metadata, falling
// back to the attachment date.
func subdir(att *content.Attachment) string {
	if att.Metadata != nil && att.Metadata.File != "" {
		if dir := path.Dir(att.Metadata.File); dir != "." && dir != "/" {
			return dir
		}
	}
	return att.Post.Date.UTC().Format("2006/01")
}

// uniquePath appends -1, -2, ... to the file name until nothing exists at it.
func uniquePath(p *media.ImageProcessor, relPath string) string {
	if !p.Exists(relPath) {
		return relPath
	}
	ext := filepath.Ext(relPath)
	stem := strings.TrimSuffix(relPath, ext)
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !p.Exists(candidate) {
			return candidate
		}
	}
	return fmt.Sprintf("%s-%s%s", stem, security.GenerateULID(), ext)
}

func removeAll(p *media.ImageProcessor, relPaths []string) {
	for _, rel := range relPaths {
		_ = p.Remove(rel)
	}
}
