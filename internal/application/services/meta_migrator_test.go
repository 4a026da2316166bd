package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

const (
	fromURL = "https://alpha.example.com"
	toURL   = "https://beta.example.com"
)

func TestTransformMetaValue(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		out := TransformMetaValue("hero", metavalue.String(fromURL+"/media/a.jpg"), content.TypePost, fromURL, toURL)
		assert.Equal(t, toURL+"/media/a.jpg", out.Text())
	})

	t.Run("nested structure", func(t *testing.T) {
		in := metavalue.Map(
			metavalue.F("links", metavalue.List(metavalue.String(fromURL+"/x"), metavalue.Int(3))),
			metavalue.F("title", metavalue.String("keep")),
		)
		out := TransformMetaValue("settings", in, content.TypePost, fromURL, toURL)
		links, _ := out.Get("links")
		assert.Equal(t, toURL+"/x", links.Items()[0].Text())
		assert.Equal(t, "3", links.Items()[1].Text())
	})

	t.Run("builder data as json string stays a string", func(t *testing.T) {
		doc := `{"sections":[{"image":"` + fromURL + `/media/b.png","id":4}]}`
		out := TransformMetaValue(content.MetaBuilderData, metavalue.String(doc), content.TypePost, fromURL, toURL)
		s, ok := out.Str()
		require.True(t, ok)
		assert.Equal(t, `{"sections":[{"image":"`+toURL+`/media/b.png","id":4}]}`, s)
	})

	t.Run("commerce keys reset on products", func(t *testing.T) {
		assert.Equal(t, "", TransformMetaValue(content.MetaSKU, metavalue.String("SKU-1"), content.TypeProduct, fromURL, toURL).Text())
		assert.Equal(t, "0", TransformMetaValue(content.MetaStock, metavalue.String("12"), content.TypeProduct, fromURL, toURL).Text())
		assert.Equal(t, "outofstock", TransformMetaValue(content.MetaStockStatus, metavalue.String("instock"), content.TypeProduct, fromURL, toURL).Text())
		assert.Equal(t, "SKU-1", TransformMetaValue(content.MetaSKU, metavalue.String("SKU-1"), content.TypePost, fromURL, toURL).Text())
	})

	t.Run("product keys keep their value with urls rewritten", func(t *testing.T) {
		in := metavalue.String(fromURL + "/shop")
		out := TransformMetaValue("_product_url", in, content.TypePost, fromURL, toURL)
		assert.Equal(t, toURL+"/shop", out.Text())

		out = TransformMetaValue("_product_version", metavalue.String("2.1"), content.TypeProduct, fromURL, toURL)
		assert.Equal(t, "2.1", out.Text())
	})
}

func TestMigrateMetaSkipsBookkeepingKeys(t *testing.T) {
	src := newTestTenant(t, "alpha")
	dst := newTestTenant(t, "beta")
	sw := tenant.NewSwitcher(tenant.StaticResolver{"alpha": src, "beta": dst}, "")

	srcID := createPost(t, src, content.Post{Title: "Source", Slug: "source"})
	dstID := createPost(t, dst, content.Post{Title: "Dest", Slug: "dest"})

	metaRepo := src.MetaRepo()
	for _, key := range []string{
		content.MetaDuplicatedFrom, content.MetaDuplicatedFromTenant,
		content.MetaEditLock, content.MetaEditLast, content.MetaOldSlug,
		"private_note",
	} {
		require.NoError(t, metaRepo.Add(srcID, key, metavalue.String("x")))
	}
	require.NoError(t, metaRepo.Add(srcID, "gallery", metavalue.String("one")))
	require.NoError(t, metaRepo.Add(srcID, "gallery", metavalue.String("two")))
	require.NoError(t, metaRepo.Add(srcID, "hero", metavalue.String(fromURL+"/media/h.jpg")))
	require.NoError(t, metaRepo.Add(srcID, "extension_key", metavalue.String("x")))

	m := NewMetaMigrator(nil)
	m.ExcludeKeys("extension_key")

	written, err := m.MigrateMeta(sw, MetaMigration{
		SourcePostID: srcID,
		DestPostID:   dstID,
		SourceTenant: "alpha",
		DestTenant:   "beta",
		PostType:     content.TypePost,
		Exclude:      []string{"private_note"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	all, err := dst.MetaRepo().FindAll(dstID)
	require.NoError(t, err)
	keys := make([]string, 0, len(all))
	for _, e := range all {
		keys = append(keys, e.Key)
	}
	assert.ElementsMatch(t, []string{"gallery", "gallery", "hero"}, keys)
	assert.Equal(t, []string{"one", "two"}, metaText(t, dst, dstID, "gallery"))
	assert.Equal(t, []string{toURL + "/media/h.jpg"}, metaText(t, dst, dstID, "hero"))
	assert.Equal(t, 0, sw.Depth())
}
