// Package content defines the application's core content-related domain entities.
package content

import (
	"strings"
	"time"
	"unicode"

	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
)

const (
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusPublish = "publish"
	StatusPrivate = "private"
	StatusTrash   = "trash"
	StatusInherit = "inherit"
)

const (
	TypePost       = "post"
	TypePage       = "page"
	TypeProduct    = "product"
	TypeAttachment = "attachment"
)

// Internal meta keys locating an attachment's file on disk.
const (
	MetaAttachedFile       = "_attached_file"
	MetaAttachmentMetadata = "_attachment_metadata"
)

// Bookkeeping meta keys that never travel with a duplicate.
const (
	MetaDuplicatedFrom       = "_duplicated_from"
	MetaDuplicatedFromTenant = "_duplicated_from_tenant"
	MetaEditLock             = "_edit_lock"
	MetaEditLast             = "_edit_last"
	MetaOldSlug              = "_old_slug"
	MetaPageTemplate         = "_page_template"
	MetaBuilderData          = "_builder_data"
)

// Commerce meta keys.
const (
	MetaSKU           = "_sku"
	MetaStock         = "_stock"
	MetaStockStatus   = "_stock_status"
	MetaManageStock   = "_manage_stock"
	MetaDownloadCount = "_download_count"
)

type Post struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Status        string    `json:"status"`
	AuthorID      int64     `json:"authorId"`
	Date          time.Time `json:"date"`
	Slug          string    `json:"slug"`
	ParentID      int64     `json:"parentId"`
	CommentStatus string    `json:"commentStatus"`
	PingStatus    string    `json:"pingStatus"`
	MimeType      string    `json:"mimeType,omitempty"`
	GUID          string    `json:"guid,omitempty"`
	CoverID       int64     `json:"coverId,omitempty"`
	Modified      time.Time `json:"modified"`
}

// PostSummary is the row shape returned when listing candidate posts.
type PostSummary struct {
	ID     int64     `json:"id"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
}

type PostQuery struct {
	Type    string
	Search  string
	Page    int
	PerPage int
}

type PostPage struct {
	Posts      []*PostSummary `json:"posts"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}

type MetaEntry struct {
	ID     int64           `json:"id"`
	PostID int64           `json:"postId"`
	Key    string          `json:"key"`
	Value  metavalue.Value `json:"value"`
}

type Taxonomy struct {
	Name         string `json:"name"`
	ObjectType   string `json:"objectType"`
	Hierarchical bool   `json:"hierarchical"`
}

type Term struct {
	ID          int64  `json:"id"`
	Taxonomy    string `json:"taxonomy"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ParentID    int64  `json:"parentId"`
}

type TermMeta struct {
	TermID int64           `json:"termId"`
	Key    string          `json:"key"`
	Value  metavalue.Value `json:"value"`
}

type Rendition struct {
	File     string `json:"file"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MimeType string `json:"mimeType"`
}

// AttachmentMetadata describes a stored media file and its generated sizes.
// File is relative to the tenant media root; rendition files live in the
// same directory.
type AttachmentMetadata struct {
	Width  int                  `json:"width"`
	Height int                  `json:"height"`
	File   string               `json:"file"`
	Sizes  map[string]Rendition `json:"sizes,omitempty"`
}

// Attachment is a post of type attachment together with its file location.
type Attachment struct {
	Post     *Post
	File     string
	Metadata *AttachmentMetadata
}

type Settings struct {
	PostStatus      string `json:"postStatus"`
	PostDate        string `json:"postDate"`
	OffsetDate      bool   `json:"offsetDate"`
	OffsetDays      int    `json:"offsetDays"`
	OffsetHours     int    `json:"offsetHours"`
	OffsetMinutes   int    `json:"offsetMinutes"`
	OffsetSeconds   int    `json:"offsetSeconds"`
	OffsetDirection string `json:"offsetDirection"`
}

const (
	LogTypeSuccess = "success"
	LogTypeError   = "error"
)

type LogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Context   map[string]any `json:"context,omitempty"`
	TenantID  string         `json:"tenantId"`
}

// Slugify lower-cases s and collapses every run of characters that are not
// letters or digits into a single dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
