// Package services provides application-level services that orchestrate
// duplication work and coordinate between tenant repositories and domain
// entities.
package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// maxSlugAttempts bounds every numbered-variant loop before falling back to
// a timestamp.
const maxSlugAttempts = 100

// SlugResolver produces slugs that are free within one tenant and post type.
type SlugResolver struct {
	now func() time.Time
}

// NewSlugResolver creates a resolver using the wall clock.
func NewSlugResolver() *SlugResolver {
	return &SlugResolver{now: time.Now}
}

// WithClock replaces the clock used for the timestamp fallback.
func (r *SlugResolver) WithClock(now func() time.Time) *SlugResolver {
	return &SlugResolver{now: now}
}

// BaseSlug is the slug a duplicate starts from: the post's own slug, or one
// derived from its title when the post has none.
func BaseSlug(post *content.Post) string {
	if post.Slug != "" {
		return post.Slug
	}
	if s := content.Slugify(post.Title); s != "" {
		return s
	}
	return fmt.Sprintf("%s-%d", post.Type, post.ID)
}

// ResolveSlug returns slug when no other live post of postType uses it,
// otherwise the first free "{slug}-copy-{n}". After maxSlugAttempts taken
// variants it returns "{slug}-copy-{unix}".
func (r *SlugResolver) ResolveSlug(tenantCtx *tenant.Context, slug, postType string, excludeID int64) (string, error) {
	postRepo := tenantCtx.PostRepo()

	taken, err := postRepo.SlugExists(slug, postType, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check slug %s: %w", slug, err)
	}
	if !taken {
		return slug, nil
	}

	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := fmt.Sprintf("%s-copy-%d", slug, n)
		taken, err := postRepo.SlugExists(candidate, postType, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s-copy-%d", slug, r.now().Unix()), nil
}

// ResolveSlugWithSuffix tries "{slug}{suffix}" first, then
// "{slug}{suffix}-{n}", and finally "{slug}{suffix}-{unix}".
func (r *SlugResolver) ResolveSlugWithSuffix(tenantCtx *tenant.Context, slug, suffix, postType string) (string, error) {
	postRepo := tenantCtx.PostRepo()
	base := slug + suffix

	taken, err := postRepo.SlugExists(base, postType, 0)
	if err != nil {
		return "", fmt.Errorf("failed to check slug %s: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		taken, err := postRepo.SlugExists(candidate, postType, 0)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s-%d", base, r.now().Unix()), nil
}
