package services

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// StatusSame keeps the source post's status.
const StatusSame = "same"

// defaultActingUser authors duplicates when the caller carries no user id.
const defaultActingUser int64 = 1

// CrossTenantOptions tune one cross-tenant duplication.
type CrossTenantOptions struct {
	CopyMedia    bool   `json:"copyMedia"`
	SlugSuffix   string `json:"slugSuffix"`
	PostStatus   string `json:"postStatus"`
	PreserveDate bool   `json:"preserveDate"`
	ActingUserID int64  `json:"-"`
}

// DefaultCrossTenantOptions copies media and creates drafts.
func DefaultCrossTenantOptions() CrossTenantOptions {
	return CrossTenantOptions{
		CopyMedia:    true,
		PostStatus:   content.StatusDraft,
		ActingUserID: defaultActingUser,
	}
}

// CrossTenantService duplicates a post from one tenant's store into another.
type CrossTenantService struct {
	resolver tenant.Resolver
	pipeline Pipeline
	now      func() time.Time
}

func NewCrossTenantService(resolver tenant.Resolver, pipeline Pipeline) *CrossTenantService {
	if pipeline.Logger == nil {
		pipeline.Logger = logging.NewNopLogger()
	}
	return &CrossTenantService{resolver: resolver, pipeline: pipeline, now: time.Now}
}

// WithClock replaces the clock used for destination dates.
func (s *CrossTenantService) WithClock(now func() time.Time) *CrossTenantService {
	clone := *s
	clone.now = now
	return &clone
}

func validStatus(status string) bool {
	switch status {
	case StatusSame, content.StatusDraft, content.StatusPending, content.StatusPublish, content.StatusPrivate:
		return true
	}
	return false
}

// DuplicatePost copies sourcePostID from sourceTenant into destTenant and
// returns the new post id. Once the destination post exists, failures in
// later steps are logged and the partially migrated post is kept.
func (s *CrossTenantService) DuplicatePost(ctx context.Context, sourcePostID int64, sourceTenant, destTenant string, opts CrossTenantOptions) (int64, error) {
	const op = "duplicate.cross_tenant"
	start := time.Now()

	marker := s.pipeline.startMarker(op, destTenant)
	marker.AddMetadata("sourceTenant", sourceTenant)
	marker.AddMetadata("sourcePostId", sourcePostID)
	defer marker.Complete()

	newID, partial, err := s.duplicate(ctx, sourcePostID, sourceTenant, destTenant, opts)

	outcome := outcomeSuccess
	switch {
	case err != nil:
		outcome = outcomeFailed
		marker.SetError(err)
	case partial:
		outcome = outcomePartial
	}
	marker.AddMetadata("outcome", outcome)
	s.pipeline.Metrics.RecordDuplication(ModeCrossTenant, outcome, time.Since(start))

	if err != nil {
		s.pipeline.Logger.LogError(logging.ChannelDuplication, op, err, destTenant, map[string]any{
			"sourceTenant": sourceTenant,
			"sourcePostId": sourcePostID,
		})
		return newID, err
	}
	return newID, nil
}

func (s *CrossTenantService) duplicate(ctx context.Context, sourcePostID int64, sourceTenant, destTenant string, opts CrossTenantOptions) (int64, bool, error) {
	const op = "duplicate.cross_tenant"

	if sourcePostID <= 0 || sourceTenant == "" || destTenant == "" {
		return 0, false, errkind.Errorf(errkind.ValidationFailed, op, "source post, source tenant and destination tenant are required")
	}
	if sourceTenant == destTenant {
		return 0, false, errkind.Errorf(errkind.ValidationFailed, op, "source and destination tenant must differ")
	}
	if opts.PostStatus == "" {
		opts.PostStatus = content.StatusDraft
	}
	if !validStatus(opts.PostStatus) {
		return 0, false, errkind.Errorf(errkind.ValidationFailed, op, "unknown post status %q", opts.PostStatus)
	}
	if opts.ActingUserID <= 0 {
		opts.ActingUserID = defaultActingUser
	}

	log := s.pipeline.Logger.WithTenantAndOperation(logging.ChannelDuplication, destTenant, op).
		With("sourceTenant", sourceTenant, "sourcePostId", sourcePostID)
	sw := tenant.NewSwitcher(s.resolver, "")

	// 1. source post
	source, err := tenant.Within(sw, sourceTenant, func(tc *tenant.Context) (*content.Post, error) {
		return tc.PostRepo().FindByID(sourcePostID)
	})
	if err != nil {
		return 0, false, errkind.E(errkind.Internal, op, err)
	}
	if source == nil {
		return 0, false, errkind.Errorf(errkind.NotFound, op, "post %d not found on %s", sourcePostID, sourceTenant)
	}

	// 2-3. status and date
	status := opts.PostStatus
	if status == StatusSame {
		status = source.Status
	}
	date := s.now().UTC()
	if opts.PreserveDate {
		date = source.Date
	}

	if err := ctx.Err(); err != nil {
		return 0, false, errkind.E(errkind.Internal, op, err)
	}

	// 4-6. slug and destination post
	newID, err := tenant.Within(sw, destTenant, func(tc *tenant.Context) (int64, error) {
		var slug string
		var err error
		if opts.SlugSuffix != "" {
			slug, err = s.pipeline.Slugs.ResolveSlugWithSuffix(tc, BaseSlug(source), opts.SlugSuffix, source.Type)
		} else {
			slug, err = s.pipeline.Slugs.ResolveSlug(tc, BaseSlug(source), source.Type, 0)
		}
		if err != nil {
			return 0, errkind.E(errkind.Internal, op, err)
		}

		id, err := tc.PostRepo().Create(&content.Post{
			Type:          source.Type,
			Title:         source.Title,
			Content:       source.Content,
			Excerpt:       source.Excerpt,
			Status:        status,
			AuthorID:      opts.ActingUserID,
			Date:          date,
			Slug:          slug,
			CommentStatus: source.CommentStatus,
			PingStatus:    source.PingStatus,
		})
		if err != nil {
			return 0, errkind.E(errkind.CreationFailed, op, err)
		}
		return id, nil
	})
	if err != nil {
		return 0, false, err
	}
	log = log.With("postId", newID)
	log.Info("Destination post created", "status", status)

	partial := false
	fail := func(step string, err error) {
		partial = true
		log.Warn("Duplication step failed", "step", step, "error", err)
	}

	// 7. taxonomies
	if err := ctx.Err(); err != nil {
		return newID, true, errkind.E(errkind.Internal, op, err)
	}
	termMap, err := s.pipeline.Taxonomy.MigrateTaxonomies(sw, source.ID, newID, sourceTenant, destTenant, source.Type)
	if err != nil {
		fail("taxonomies", err)
	}
	log.Debug("Taxonomies migrated", "terms", len(termMap))

	// 8. meta
	if err := ctx.Err(); err != nil {
		return newID, true, errkind.E(errkind.Internal, op, err)
	}
	if _, err := s.pipeline.Meta.MigrateMeta(sw, MetaMigration{
		SourcePostID: source.ID,
		DestPostID:   newID,
		SourceTenant: sourceTenant,
		DestTenant:   destTenant,
		PostType:     source.Type,
	}); err != nil {
		fail("meta", err)
	}

	// 9-11. media
	if opts.CopyMedia {
		if err := ctx.Err(); err != nil {
			return newID, true, errkind.E(errkind.Internal, op, err)
		}
		assetMap := s.replicateMedia(sw, source, newID, sourceTenant, destTenant, fail)
		log.Debug("Media replicated", "assets", len(assetMap))

		if len(assetMap) > 0 {
			if err := s.rewriteBody(sw, source, newID, assetMap, sourceTenant, destTenant); err != nil {
				fail("content", err)
			}
		}

		if source.CoverID > 0 {
			if err := s.copyCover(sw, source.CoverID, newID, assetMap, sourceTenant, destTenant); err != nil {
				fail("cover", err)
			}
		}
	}

	// 12. provenance
	err = sw.Run(destTenant, func(tc *tenant.Context) error {
		metaRepo := tc.MetaRepo()
		if err := metaRepo.Set(newID, content.MetaDuplicatedFrom, metavalue.Int(source.ID)); err != nil {
			return err
		}
		return metaRepo.Set(newID, content.MetaDuplicatedFromTenant, metavalue.String(sourceTenant))
	})
	if err != nil {
		fail("provenance", err)
	}

	// 13. hook
	s.pipeline.publish(events.AfterCrossTenantDuplicate, events.CrossTenantPayload{
		NewID:        newID,
		OldID:        source.ID,
		SourceTenant: sourceTenant,
		DestTenant:   destTenant,
	})

	log.Info("Cross-tenant duplication complete", "partial", partial)
	return newID, partial, nil
}

// replicateMedia copies structural attachment children and every attachment
// referenced from the body. Failures are reported through fail and skipped.
func (s *CrossTenantService) replicateMedia(sw *tenant.Switcher, source *content.Post, newID int64, sourceTenant, destTenant string, fail func(string, error)) map[int64]int64 {
	assetMap := make(map[int64]int64)

	children, err := tenant.Within(sw, sourceTenant, func(tc *tenant.Context) ([]*content.Post, error) {
		return tc.PostRepo().FindChildren(source.ID, content.TypeAttachment)
	})
	if err != nil {
		fail("media", err)
	}

	for _, child := range children {
		if _, done := assetMap[child.ID]; done {
			continue
		}
		destAsset, err := s.pipeline.Media.CopyMedia(sw, child.ID, sourceTenant, destTenant)
		if err != nil {
			fail("media", err)
			continue
		}
		assetMap[child.ID] = destAsset

		err = sw.Run(destTenant, func(tc *tenant.Context) error {
			return tc.PostRepo().SetParent(destAsset, newID)
		})
		if err != nil {
			fail("media", err)
		}
	}

	for _, id := range ScanMediaIDs(source.Content) {
		if _, done := assetMap[id]; done {
			continue
		}
		destAsset, err := s.pipeline.Media.CopyMedia(sw, id, sourceTenant, destTenant)
		if err != nil {
			// block attributes also carry ids of things that are not media
			if errkind.Is(err, errkind.NotFound) {
				continue
			}
			fail("media", err)
			continue
		}
		assetMap[id] = destAsset
	}

	return assetMap
}

func (s *CrossTenantService) rewriteBody(sw *tenant.Switcher, source *content.Post, newID int64, assetMap map[int64]int64, sourceTenant, destTenant string) error {
	type located struct {
		att *content.Attachment
		cfg *tenant.Config
	}
	lookup := func(tenantID string, ids []int64) (map[int64]located, error) {
		return tenant.Within(sw, tenantID, func(tc *tenant.Context) (map[int64]located, error) {
			found := make(map[int64]located, len(ids))
			for _, id := range ids {
				att, err := tc.AttachmentRepo().FindByID(id)
				if err != nil {
					return nil, err
				}
				if att != nil {
					found[id] = located{att: att, cfg: tc.Config}
				}
			}
			return found, nil
		})
	}

	oldIDs := make([]int64, 0, len(assetMap))
	newIDs := make([]int64, 0, len(assetMap))
	for oldID, nid := range assetMap {
		oldIDs = append(oldIDs, oldID)
		newIDs = append(newIDs, nid)
	}

	sources, err := lookup(sourceTenant, oldIDs)
	if err != nil {
		return fmt.Errorf("failed to load source attachments: %w", err)
	}
	dests, err := lookup(destTenant, newIDs)
	if err != nil {
		return fmt.Errorf("failed to load destination attachments: %w", err)
	}

	var pairs []URLPair
	for oldID, nid := range assetMap {
		src, ok := sources[oldID]
		dst, ok2 := dests[nid]
		if !ok || !ok2 {
			continue
		}
		pairs = append(pairs, attachmentURLPairs(src.att, src.cfg, dst.att, dst.cfg)...)
	}

	body := RewriteMediaRefs(source.Content, pairs, assetMap)
	if body == source.Content {
		return nil
	}

	return sw.Run(destTenant, func(tc *tenant.Context) error {
		return tc.PostRepo().UpdateContent(newID, body)
	})
}

// attachmentURLPairs maps the source file and rendition URLs to their
// destination counterparts. A rendition missing on the destination maps to
// the destination's full-size file.
func attachmentURLPairs(src *content.Attachment, srcCfg *tenant.Config, dst *content.Attachment, dstCfg *tenant.Config) []URLPair {
	dstURL := dstCfg.MediaURL(dst.File)
	pairs := []URLPair{{From: srcCfg.MediaURL(src.File), To: dstURL}}
	if src.Post.GUID != "" && dst.Post.GUID != "" {
		pairs = append(pairs, URLPair{From: src.Post.GUID, To: dst.Post.GUID})
	}

	if src.Metadata == nil {
		return pairs
	}
	srcDir := path.Dir(src.File)
	dstDir := path.Dir(dst.File)
	for name, r := range src.Metadata.Sizes {
		to := dstURL
		if dst.Metadata != nil {
			if dr, ok := dst.Metadata.Sizes[name]; ok {
				to = dstCfg.MediaURL(path.Join(dstDir, dr.File))
			}
		}
		pairs = append(pairs, URLPair{From: srcCfg.MediaURL(path.Join(srcDir, r.File)), To: to})
	}
	return pairs
}

func (s *CrossTenantService) copyCover(sw *tenant.Switcher, coverID, newID int64, assetMap map[int64]int64, sourceTenant, destTenant string) error {
	destCover, ok := assetMap[coverID]
	if !ok {
		var err error
		destCover, err = s.pipeline.Media.CopyMedia(sw, coverID, sourceTenant, destTenant)
		if err != nil {
			return err
		}
	}
	return sw.Run(destTenant, func(tc *tenant.Context) error {
		return tc.PostRepo().SetCover(newID, destCover)
	})
}
