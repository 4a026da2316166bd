package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// defaultMetaExclusions never travel with a cross-tenant duplicate.
var defaultMetaExclusions = []string{
	content.MetaDuplicatedFrom,
	content.MetaDuplicatedFromTenant,
	content.MetaEditLock,
	content.MetaEditLast,
	content.MetaOldSlug,
}

// MetaMigration names one post's meta copy between two tenants.
type MetaMigration struct {
	SourcePostID int64
	DestPostID   int64
	SourceTenant string
	DestTenant   string
	// PostType of the source post; product posts get commerce resets.
	PostType string
	Exclude  []string
}

// MetaMigrator copies post meta between tenants, rewriting embedded source
// URLs to the destination origin.
type MetaMigrator struct {
	mu       sync.RWMutex
	excluded map[string]struct{}
	logger   *logging.ChanneledLogger
}

func NewMetaMigrator(logger *logging.ChanneledLogger) *MetaMigrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &MetaMigrator{excluded: make(map[string]struct{}), logger: logger}
	m.ExcludeKeys(defaultMetaExclusions...)
	return m
}

// ExcludeKeys adds keys that every later migration skips.
func (m *MetaMigrator) ExcludeKeys(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.excluded[k] = struct{}{}
	}
}

func (m *MetaMigrator) isExcluded(key string, extra map[string]struct{}) bool {
	if _, ok := extra[key]; ok {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.excluded[key]
	return ok
}

// MigrateMeta copies every non-excluded entry of the source post onto the
// destination post as new entries. Individual write failures are logged and
// skipped; the count of written entries is returned.
func (m *MetaMigrator) MigrateMeta(sw *tenant.Switcher, req MetaMigration) (int, error) {
	var (
		entries []*content.MetaEntry
		fromURL string
	)
	err := sw.Run(req.SourceTenant, func(ctx *tenant.Context) error {
		var err error
		entries, err = ctx.MetaRepo().FindAll(req.SourcePostID)
		fromURL = ctx.BaseURL()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load meta for post %d: %w", req.SourcePostID, err)
	}

	extra := make(map[string]struct{}, len(req.Exclude))
	for _, k := range req.Exclude {
		extra[k] = struct{}{}
	}

	log := m.logger.WithTenantAndOperation(logging.ChannelMeta, req.DestTenant, "meta.migrate")
	written := 0

	err = sw.Run(req.DestTenant, func(ctx *tenant.Context) error {
		toURL := ctx.BaseURL()
		metaRepo := ctx.MetaRepo()

		for _, entry := range entries {
			if m.isExcluded(entry.Key, extra) {
				continue
			}
			value := TransformMetaValue(entry.Key, entry.Value, req.PostType, fromURL, toURL)
			if err := metaRepo.Add(req.DestPostID, entry.Key, value); err != nil {
				log.Warn("Failed to copy meta entry", "postId", req.DestPostID, "key", entry.Key, "error", err)
				continue
			}
			written++
		}
		return nil
	})
	if err != nil {
		return written, err
	}

	log.Debug("Meta migrated", "sourcePostId", req.SourcePostID, "postId", req.DestPostID, "entries", written)
	return written, nil
}

// TransformMetaValue applies the reference rewriting for one meta entry.
func TransformMetaValue(key string, v metavalue.Value, postType, fromURL, toURL string) metavalue.Value {
	switch {
	case key == content.MetaBuilderData:
		return rewriteBuilderData(v, fromURL, toURL)
	case isCommerceKey(key, postType):
		return replaceURL(resetCommerceValue(key, v), fromURL, toURL)
	default:
		return replaceURL(v, fromURL, toURL)
	}
}

func replaceURL(v metavalue.Value, fromURL, toURL string) metavalue.Value {
	if fromURL == "" || fromURL == toURL {
		return v
	}
	return metavalue.ReplaceAll(v, fromURL, toURL)
}

// rewriteBuilderData accepts a page-builder document stored either as a JSON
// string or as a structured value and keeps the shape it was given.
func rewriteBuilderData(v metavalue.Value, fromURL, toURL string) metavalue.Value {
	s, isString := v.Str()
	if !isString {
		return replaceURL(v, fromURL, toURL)
	}
	doc, err := metavalue.Parse([]byte(s))
	if err != nil {
		return replaceURL(v, fromURL, toURL)
	}
	return metavalue.String(metavalue.Encode(replaceURL(doc, fromURL, toURL)))
}

func isCommerceKey(key, postType string) bool {
	if strings.Contains(key, "_product") {
		return true
	}
	if postType != content.TypeProduct {
		return false
	}
	switch key {
	case content.MetaSKU, content.MetaStock, content.MetaStockStatus:
		return true
	}
	return false
}

func resetCommerceValue(key string, v metavalue.Value) metavalue.Value {
	switch key {
	case content.MetaSKU:
		return metavalue.String("")
	case content.MetaStock:
		return metavalue.String("0")
	case content.MetaStockStatus:
		return metavalue.String("outofstock")
	}
	return v
}
