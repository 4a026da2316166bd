// Package content provides the SQL-backed content store of a tenant.
package content

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
)

// timeLayout is how post timestamps are stored; values are UTC.
const timeLayout = "2006-01-02 15:04:05"

const defaultPerPage = 20

const postColumns = `id, post_type, title, content, excerpt, status, author_id, post_date, slug,
	parent_id, comment_status, ping_status, mime_type, guid, cover_id, modified`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*content.Post, error) {
	var p content.Post
	var date, modified string
	err := row.Scan(&p.ID, &p.Type, &p.Title, &p.Content, &p.Excerpt, &p.Status, &p.AuthorID,
		&date, &p.Slug, &p.ParentID, &p.CommentStatus, &p.PingStatus, &p.MimeType, &p.GUID,
		&p.CoverID, &modified)
	if err != nil {
		return nil, err
	}
	p.Date = parseTime(date)
	p.Modified = parseTime(modified)
	return &p, nil
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (r *PostRepository) FindByID(id int64) (*content.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`

	post, err := scanPost(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}
	return post, nil
}

func (r *PostRepository) Create(post *content.Post) (int64, error) {
	return insertPost(r.db, post)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertPost(db execer, post *content.Post) (int64, error) {
	now := time.Now().UTC()
	date := post.Date
	if date.IsZero() {
		date = now
	}
	status := post.Status
	if status == "" {
		status = content.StatusDraft
	}
	postType := post.Type
	if postType == "" {
		postType = content.TypePost
	}
	commentStatus := post.CommentStatus
	if commentStatus == "" {
		commentStatus = "open"
	}
	pingStatus := post.PingStatus
	if pingStatus == "" {
		pingStatus = "open"
	}

	query := `INSERT INTO posts (post_type, title, content, excerpt, status, author_id, post_date, slug,
		parent_id, comment_status, ping_status, mime_type, guid, cover_id, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := db.Exec(query, postType, post.Title, post.Content, post.Excerpt, status,
		post.AuthorID, formatTime(date), post.Slug, post.ParentID, commentStatus, pingStatus,
		post.MimeType, post.GUID, post.CoverID, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new post id: %w", err)
	}
	return id, nil
}

func (r *PostRepository) UpdateContent(id int64, body string) error {
	return r.updateOne(`UPDATE posts SET content = ?, modified = ? WHERE id = ?`, id, body)
}

func (r *PostRepository) SetParent(id, parentID int64) error {
	return r.updateOne(`UPDATE posts SET parent_id = ?, modified = ? WHERE id = ?`, id, parentID)
}

func (r *PostRepository) SetCover(id, coverID int64) error {
	return r.updateOne(`UPDATE posts SET cover_id = ?, modified = ? WHERE id = ?`, id, coverID)
}

func (r *PostRepository) updateOne(query string, id int64, value any) error {
	result, err := r.db.Exec(query, value, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update post %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update post %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("post %d not found", id)
	}
	return nil
}

// List returns one page of non-trashed posts of a type, newest first.
func (r *PostRepository) List(q content.PostQuery) (*content.PostPage, error) {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	postType := q.Type
	if postType == "" {
		postType = content.TypePost
	}

	where := `post_type = ? AND status != 'trash'`
	args := []any{postType}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + escapeLike(search) + "%"
		where += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		args = append(args, like, like)
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `SELECT id, title, post_date, status FROM posts WHERE ` + where +
		` ORDER BY post_date DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*content.PostSummary{}
	for rows.Next() {
		var s content.PostSummary
		var date string
		if err := rows.Scan(&s.ID, &s.Title, &date, &s.Status); err != nil {
			return nil, fmt.Errorf("failed to scan post summary: %w", err)
		}
		s.Date = parseTime(date)
		posts = append(posts, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &content.PostPage{
		Posts:      posts,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// SlugExists checks non-trashed posts of postType, ignoring excludeID.
func (r *PostRepository) SlugExists(slug, postType string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM posts
		WHERE slug = ? AND post_type = ? AND status != 'trash' AND id != ?)`

	var exists bool
	if err := r.db.QueryRow(query, slug, postType, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// FindAttachmentsByGUIDFragment returns every attachment whose guid
// contains fragment, oldest first.
func (r *PostRepository) FindAttachmentsByGUIDFragment(fragment string) ([]int64, error) {
	query := `SELECT id FROM posts WHERE post_type = 'attachment' AND guid LIKE ? ESCAPE '\' ORDER BY id`

	rows, err := r.db.Query(query, "%"+escapeLike(fragment)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to look up attachments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan attachment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostRepository) FindChildren(parentID int64, postType string) ([]*content.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE parent_id = ? AND post_type = ? AND status != 'trash' ORDER BY id`

	rows, err := r.db.Query(query, parentID, postType)
	if err != nil {
		return nil, fmt.Errorf("failed to query child posts: %w", err)
	}
	defer rows.Close()

	var children []*content.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child post: %w", err)
		}
		children = append(children, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return children, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
