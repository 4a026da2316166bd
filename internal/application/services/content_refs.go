package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	imageClassPattern = regexp.MustCompile(`wp-image-(\d+)`)
	galleryPattern    = regexp.MustCompile(`\[gallery[^\]]*ids=["']([^"']+)["'][^\]]*\]`)
	blockIDPattern    = regexp.MustCompile(`"id":(\d+)`)
	galleryIDsPattern = regexp.MustCompile(`(\[gallery[^\]]*ids=["'])([^"']*)(["'])`)
)

// ScanMediaIDs lists attachment ids referenced by a post body through image
// class markers, gallery shortcodes and block attributes, in first-seen
// order without repeats.
func ScanMediaIDs(body string) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	add := func(s string) {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || id <= 0 || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, m := range imageClassPattern.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	for _, m := range galleryPattern.FindAllStringSubmatch(body, -1) {
		for _, part := range strings.Split(m[1], ",") {
			add(part)
		}
	}
	for _, m := range blockIDPattern.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return ids
}

// URLPair maps one source media URL to its destination URL.
type URLPair struct {
	From string
	To   string
}

// RewriteMediaRefs replaces source media URLs with destination URLs and maps
// gallery shortcode id lists through ids. Longer URLs are matched first so a
// file URL never shadows one of its rendition URLs.
func RewriteMediaRefs(body string, urls []URLPair, ids map[int64]int64) string {
	if len(urls) > 0 {
		sorted := make([]URLPair, 0, len(urls))
		for _, p := range urls {
			if p.From != "" && p.From != p.To {
				sorted = append(sorted, p)
			}
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i].From) > len(sorted[j].From)
		})
		pairs := make([]string, 0, len(sorted)*2)
		for _, p := range sorted {
			pairs = append(pairs, p.From, p.To)
		}
		if len(pairs) > 0 {
			body = strings.NewReplacer(pairs...).Replace(body)
		}
	}

	if len(ids) == 0 {
		return body
	}

	return galleryIDsPattern.ReplaceAllStringFunc(body, func(match string) string {
		parts := galleryIDsPattern.FindStringSubmatch(match)
		list := strings.Split(parts[2], ",")
		for i, raw := range list {
			trimmed := strings.TrimSpace(raw)
			old, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				continue
			}
			if newID, ok := ids[old]; ok {
				list[i] = strings.Replace(raw, trimmed, strconv.FormatInt(newID, 10), 1)
			}
		}
		return parts[1] + strings.Join(list, ",") + parts[3]
	})
}
