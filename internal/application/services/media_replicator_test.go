package services

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

func newReplicatorFixture(t *testing.T) (*MediaReplicator, *tenant.Switcher, *tenant.Context, *tenant.Context) {
	t.Helper()
	src := newTestTenant(t, "alpha")
	dst := newTestTenant(t, "beta")
	sw := tenant.NewSwitcher(tenant.StaticResolver{"alpha": src, "beta": dst}, "")
	return NewMediaReplicator(NewSlugResolver(), nil, nil), sw, src, dst
}

func TestCopyMediaReplicatesFileAndRenditions(t *testing.T) {
	m, sw, src, dst := newReplicatorFixture(t)

	srcID := seedAttachment(t, src, "2023/07/photo.jpg", 400, 300, 0)
	require.NoError(t, src.MetaRepo().Add(srcID, "alt_text", metavalue.String("A lake")))

	newID, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.NoError(t, err)
	require.NotZero(t, newID)

	att, err := dst.AttachmentRepo().FindByID(newID)
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, "2023/07/photo.jpg", att.File)
	assert.Equal(t, content.StatusInherit, att.Post.Status)
	assert.Equal(t, "image/jpeg", att.Post.MimeType)
	assert.Equal(t, "https://beta.example.com/media/2023/07/photo.jpg", att.Post.GUID)

	require.NotNil(t, att.Metadata)
	assert.Equal(t, 400, att.Metadata.Width)
	assert.Equal(t, 300, att.Metadata.Height)
	require.Contains(t, att.Metadata.Sizes, "thumbnail")
	assert.Equal(t, "photo-150x150.jpg", att.Metadata.Sizes["thumbnail"].File)

	processor := Processor(dst)
	assert.True(t, processor.Exists("2023/07/photo.jpg"))
	assert.True(t, processor.Exists("2023/07/photo-150x150.jpg"))
	assert.True(t, processor.Exists("2023/07/photo-300x225.jpg"))

	assert.Equal(t, []string{"A lake"}, metaText(t, dst, newID, "alt_text"))
	assert.Equal(t, []string{"2023/07/photo.jpg"}, metaText(t, dst, newID, content.MetaAttachedFile))
	assert.Equal(t, 0, sw.Depth())
}

func TestCopyMediaReusesMatchingAttachment(t *testing.T) {
	m, sw, src, dst := newReplicatorFixture(t)
	srcID := seedAttachment(t, src, "2023/07/photo.jpg", 400, 300, 0)

	first, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.NoError(t, err)

	second, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, Processor(dst).Exists("2023/07/photo-1.jpg"))
}

func TestCopyMediaKeepsDistinctFilesWithSameName(t *testing.T) {
	m, sw, src, dst := newReplicatorFixture(t)
	existing := seedAttachment(t, dst, "2023/07/photo.jpg", 200, 200, 0)
	srcID := seedAttachment(t, src, "2023/07/photo.jpg", 400, 300, 0)

	newID, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.NoError(t, err)
	assert.NotEqual(t, existing, newID)

	att, err := dst.AttachmentRepo().FindByID(newID)
	require.NoError(t, err)
	assert.Equal(t, "2023/07/photo-1.jpg", att.File)
	assert.True(t, Processor(dst).Exists("2023/07/photo-1.jpg"))
	assert.True(t, Processor(dst).Exists("2023/07/photo-1-150x150.jpg"))
	assert.Equal(t, "photo-1-300x225.jpg", att.Metadata.Sizes["medium"].File)
}

func TestCopyMediaReusesRenamedCopy(t *testing.T) {
	m, sw, src, dst := newReplicatorFixture(t)
	seedAttachment(t, dst, "2023/07/photo.jpg", 200, 200, 0)
	srcID := seedAttachment(t, src, "2023/07/photo.jpg", 400, 300, 0)

	first, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.NoError(t, err)

	second, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, Processor(dst).Exists("2023/07/photo-2.jpg"))
}

func TestIsNameVariant(t *testing.T) {
	assert.True(t, isNameVariant("photo.jpg", "photo.jpg"))
	assert.True(t, isNameVariant("photo-12.jpg", "photo.jpg"))
	assert.False(t, isNameVariant("photo-150x150.jpg", "photo.jpg"))
	assert.False(t, isNameVariant("photo-.jpg", "photo.jpg"))
	assert.False(t, isNameVariant("photograph.jpg", "photo.jpg"))
	assert.False(t, isNameVariant("photo-1.png", "photo.jpg"))
}

func TestCopyMediaFileCopyFailure(t *testing.T) {
	m, sw, src, dst := newReplicatorFixture(t)
	srcID := seedAttachment(t, src, "2023/07/photo.jpg", 64, 64, 0)

	// a plain file where the year directory should go
	require.NoError(t, os.WriteFile(Processor(dst).Path("2023"), []byte("x"), 0644))

	_, err := m.CopyMedia(sw, srcID, "alpha", "beta")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.CopyFailed))

	ids, err := dst.PostRepo().FindAttachmentsByGUIDFragment("/photo")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, sw.Depth())
}

func TestCopyMediaRemovesFilesWhenInsertFails(t *testing.T) {
	m, sw, src, dst := newReplicatorFixture(t)
	srcID := seedAttachment(t, src, "2023/07/photo.jpg", 400, 300, 0)

	_, err := dst.Database.Conn.Exec(`CREATE TRIGGER reject_attachments BEFORE INSERT ON posts
		WHEN NEW.post_type = 'attachment' BEGIN SELECT RAISE(ABORT, 'attachments rejected'); END`)
	require.NoError(t, err)

	_, err = m.CopyMedia(sw, srcID, "alpha", "beta")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.CreationFailed))

	processor := Processor(dst)
	assert.False(t, processor.Exists("2023/07/photo.jpg"))
	assert.False(t, processor.Exists("2023/07/photo-150x150.jpg"))
	assert.False(t, processor.Exists("2023/07/photo-300x225.jpg"))
	assert.Equal(t, 0, sw.Depth())
}

func TestCopyMediaNotFound(t *testing.T) {
	m, sw, src, _ := newReplicatorFixture(t)

	_, err := m.CopyMedia(sw, 999, "alpha", "beta")
	assert.True(t, errkind.Is(err, errkind.NotFound))

	srcID := seedAttachment(t, src, "2023/07/gone.jpg", 64, 64, 0)
	require.NoError(t, os.Remove(Processor(src).Path("2023/07/gone.jpg")))

	_, err = m.CopyMedia(sw, srcID, "alpha", "beta")
	assert.True(t, errkind.Is(err, errkind.NotFound))
	assert.Equal(t, 0, sw.Depth())
}
