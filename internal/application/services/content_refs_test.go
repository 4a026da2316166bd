package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanMediaIDs(t *testing.T) {
	body := `<img class="wp-image-12" src="a.jpg">` +
		`[gallery columns="3" ids="4, 5,12"]` +
		`<!-- wp:image {"id":7,"sizeSlug":"large"} -->` +
		`<img class="wp-image-7">`

	assert.Equal(t, []int64{12, 7, 4, 5}, ScanMediaIDs(body), "class markers, then galleries, then block ids")
	assert.Empty(t, ScanMediaIDs("plain text with no media"))
}

func TestRewriteMediaRefsURLsLongestFirst(t *testing.T) {
	body := `<img src="https://a.example.com/media/2023/07/photo.jpg">` +
		`<img src="https://a.example.com/media/2023/07/photo-150x150.jpg">`

	out := RewriteMediaRefs(body, []URLPair{
		{From: "https://a.example.com/media/2023/07/photo.jpg", To: "https://b.example.com/media/2023/07/photo.jpg"},
		{From: "https://a.example.com/media/2023/07/photo-150x150.jpg", To: "https://b.example.com/media/2023/07/photo-150x150.jpg"},
	}, nil)

	assert.NotContains(t, out, "a.example.com")
	assert.Contains(t, out, "https://b.example.com/media/2023/07/photo-150x150.jpg")
	assert.Contains(t, out, "https://b.example.com/media/2023/07/photo.jpg")
}

func TestRewriteMediaRefsGalleryIDsMapInOnePass(t *testing.T) {
	body := `[gallery ids="5,9, 12"] and [gallery link="file" ids='9']`

	out := RewriteMediaRefs(body, nil, map[int64]int64{5: 9, 9: 30})

	assert.Equal(t, `[gallery ids="9,30, 12"] and [gallery link="file" ids='30']`, out)
}

func TestRewriteMediaRefsLeavesOtherNumbers(t *testing.T) {
	body := `Order 5 of 15 [gallery ids="15"]`
	assert.Equal(t, `Order 5 of 15 [gallery ids="15"]`, RewriteMediaRefs(body, nil, map[int64]int64{5: 99}))
}
