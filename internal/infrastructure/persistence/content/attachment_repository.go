package content

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
)

// AttachmentRepository reads and writes attachment posts together with the
// two meta entries that locate their files.
type AttachmentRepository struct {
	db    *sql.DB
	posts *PostRepository
	meta  *MetaRepository
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{
		db:    db,
		posts: NewPostRepository(db),
		meta:  NewMetaRepository(db),
	}
}

// FindByID returns nil when id is missing or is not an attachment.
func (r *AttachmentRepository) FindByID(id int64) (*content.Attachment, error) {
	post, err := r.posts.FindByID(id)
	if err != nil {
		return nil, err
	}
	if post == nil || post.Type != content.TypeAttachment {
		return nil, nil
	}

	attachment := &content.Attachment{Post: post}

	files, err := r.meta.FindByKey(id, content.MetaAttachedFile)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		attachment.File = files[0].Value.Text()
	}

	metas, err := r.meta.FindByKey(id, content.MetaAttachmentMetadata)
	if err != nil {
		return nil, err
	}
	if len(metas) > 0 && !metas[0].Value.IsNull() {
		md, err := decodeMetadata(metas[0].Value)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", id, err)
		}
		attachment.Metadata = md
	}

	return attachment, nil
}

// Create inserts the attachment post and its file meta in one transaction.
func (r *AttachmentRepository) Create(a *content.Attachment) (int64, error) {
	post := *a.Post
	post.Type = content.TypeAttachment
	if post.Status == "" {
		post.Status = content.StatusInherit
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := insertPost(tx, &post)
	if err != nil {
		return 0, err
	}

	insertMeta := `INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`
	if _, err := tx.Exec(insertMeta, id, content.MetaAttachedFile, metavalue.Encode(metavalue.String(a.File))); err != nil {
		return 0, fmt.Errorf("failed to record attachment file: %w", err)
	}
	if a.Metadata != nil {
		v, err := encodeMetadata(a.Metadata)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(insertMeta, id, content.MetaAttachmentMetadata, metavalue.Encode(v)); err != nil {
			return 0, fmt.Errorf("failed to record attachment metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit attachment: %w", err)
	}
	return id, nil
}

func (r *AttachmentRepository) UpdateMetadata(id int64, md *content.AttachmentMetadata) error {
	v, err := encodeMetadata(md)
	if err != nil {
		return err
	}
	return r.meta.Set(id, content.MetaAttachmentMetadata, v)
}

func encodeMetadata(md *content.AttachmentMetadata) (metavalue.Value, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return metavalue.Null(), fmt.Errorf("failed to encode attachment metadata: %w", err)
	}
	return metavalue.Parse(data)
}

func decodeMetadata(v metavalue.Value) (*content.AttachmentMetadata, error) {
	data := []byte(metavalue.Encode(v))
	if s, ok := v.Str(); ok {
		data = []byte(s)
	}

	var md content.AttachmentMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("invalid attachment metadata: %w", err)
	}
	return &md, nil
}
