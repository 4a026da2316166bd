package media

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSizes = []Size{
	{Name: "thumbnail", Width: 150, Height: 150, Crop: true},
	{Name: "medium", Width: 300, Height: 300},
	{Name: "large", Width: 1024, Height: 1024},
}

func TestGenerateMetadataJPEG(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "01"), 0755))
	img := imaging.New(800, 600, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(root, "2024", "01", "photo.jpg")))

	p := NewImageProcessor(root, testSizes)
	md, err := p.GenerateMetadata("2024/01/photo.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, 800, md.Width)
	assert.Equal(t, 600, md.Height)
	assert.Equal(t, "2024/01/photo.jpg", md.File)
	require.Len(t, md.Sizes, 2, "large is never upscaled")

	thumb := md.Sizes["thumbnail"]
	assert.Equal(t, "photo-150x150.jpg", thumb.File)
	assert.Equal(t, 150, thumb.Height)

	medium := md.Sizes["medium"]
	assert.Equal(t, 300, medium.Width)
	assert.Equal(t, 225, medium.Height)
	assert.True(t, p.Exists("2024/01/"+medium.File))
}

func TestGenerateMetadataWebP(t *testing.T) {
	root := t.TempDir()
	img := imaging.New(400, 200, color.NRGBA{G: 200, A: 255})
	require.NoError(t, webp.Save(filepath.Join(root, "banner.webp"), img, &webp.Options{Quality: 85}))

	p := NewImageProcessor(root, testSizes)
	md, err := p.GenerateMetadata("banner.webp", "image/webp")
	require.NoError(t, err)

	medium, ok := md.Sizes["medium"]
	require.True(t, ok)
	assert.Equal(t, "banner-300x150.webp", medium.File)
	assert.True(t, p.Exists(medium.File))
}

func TestGenerateMetadataNonImage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.pdf"), []byte("%PDF-1.4"), 0644))

	md, err := NewImageProcessor(root, testSizes).GenerateMetadata("doc.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", md.File)
	assert.Empty(t, md.Sizes)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0644))

	dst := filepath.Join(dir, "nested", "deeper", "b.txt")
	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "c.txt")))
	_, err = os.Stat(filepath.Join(dir, "c.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeType("x.JPG"))
	assert.Equal(t, "image/png", MimeType("x.png"))
	assert.Equal(t, "application/octet-stream", MimeType("x.unknownext"))
}
