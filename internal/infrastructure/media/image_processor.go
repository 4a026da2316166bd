// Package media provides file copy and rendition generation for a tenant's
// media library.
package media

import (
	"fmt"
	"image"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Size is one named rendition to generate.
type Size struct {
	Name   string
	Width  int
	Height int
	Crop   bool
}

// ImageProcessor handles image processing operations for a specific tenant
type ImageProcessor struct {
	basePath string // tenant media root
	sizes    []Size
}

// NewImageProcessor creates a new ImageProcessor instance
func NewImageProcessor(basePath string, sizes []Size) *ImageProcessor {
	return &ImageProcessor{
		basePath: basePath,
		sizes:    sizes,
	}
}

// Path resolves a media-relative path on disk.
func (p *ImageProcessor) Path(relPath string) string {
	return filepath.Join(p.basePath, filepath.FromSlash(relPath))
}

// Exists reports whether a media-relative file is present.
func (p *ImageProcessor) Exists(relPath string) bool {
	info, err := os.Stat(p.Path(relPath))
	return err == nil && !info.IsDir()
}

// Remove deletes a media-relative file, ignoring a missing one.
func (p *ImageProcessor) Remove(relPath string) error {
	if err := os.Remove(p.Path(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", relPath, err)
	}
	return nil
}

// CopyFile copies src to dst, creating dst's directory. A partially written
// dst is removed on failure.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to finish file: %w", err)
	}
	return nil
}

// MimeType guesses a MIME type from the file extension.
func MimeType(filename string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}

// GenerateMetadata reads the stored file at relPath and writes the
// configured renditions next to it. Non-image files get metadata without
// sizes. Images are never upscaled.
func (p *ImageProcessor) GenerateMetadata(relPath, mimeType string) (*content.AttachmentMetadata, error) {
	relPath = filepath.ToSlash(relPath)
	md := &content.AttachmentMetadata{File: relPath}

	if !strings.HasPrefix(mimeType, "image/") || mimeType == "image/svg+xml" {
		return md, nil
	}

	img, err := p.decode(relPath)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	md.Width, md.Height = bounds.Dx(), bounds.Dy()

	dir := filepath.Dir(p.Path(relPath))
	ext := filepath.Ext(relPath)
	base := strings.TrimSuffix(filepath.Base(relPath), ext)

	var created []string
	for _, size := range p.sizes {
		if md.Width <= size.Width && md.Height <= size.Height {
			continue
		}

		var resized image.Image
		if size.Crop {
			if md.Width < size.Width || md.Height < size.Height {
				continue
			}
			resized = imaging.Fill(img, size.Width, size.Height, imaging.Center, imaging.Lanczos)
		} else {
			resized = imaging.Fit(img, size.Width, size.Height, imaging.Lanczos)
		}

		w, h := resized.Bounds().Dx(), resized.Bounds().Dy()
		name := fmt.Sprintf("%s-%dx%d%s", base, w, h, ext)
		if err := save(filepath.Join(dir, name), resized, ext); err != nil {
			for _, f := range created {
				os.Remove(f)
			}
			return nil, fmt.Errorf("failed to save %s rendition: %w", size.Name, err)
		}
		created = append(created, filepath.Join(dir, name))

		if md.Sizes == nil {
			md.Sizes = make(map[string]content.Rendition)
		}
		md.Sizes[size.Name] = content.Rendition{File: name, Width: w, Height: h, MimeType: mimeType}
	}

	return md, nil
}

func (p *ImageProcessor) decode(relPath string) (image.Image, error) {
	path := p.Path(relPath)
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		img, err := webp.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to decode webp image: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func save(path string, img image.Image, ext string) error {
	if strings.EqualFold(ext, ".webp") {
		return webp.Save(path, img, &webp.Options{Quality: 85})
	}
	return imaging.Save(img, path)
}
