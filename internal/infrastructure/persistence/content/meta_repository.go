package content

import (
	"database/sql"
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
)

// MetaRepository stores post meta. Values are persisted as JSON text; rows
// written by other tools as plain text read back as strings.
type MetaRepository struct {
	db *sql.DB
}

func NewMetaRepository(db *sql.DB) *MetaRepository {
	return &MetaRepository{db: db}
}

func (r *MetaRepository) FindAll(postID int64) ([]*content.MetaEntry, error) {
	return r.query(`SELECT id, post_id, meta_key, meta_value FROM postmeta WHERE post_id = ? ORDER BY id`, postID)
}

func (r *MetaRepository) FindByKey(postID int64, key string) ([]*content.MetaEntry, error) {
	return r.query(`SELECT id, post_id, meta_key, meta_value FROM postmeta
		WHERE post_id = ? AND meta_key = ? ORDER BY id`, postID, key)
}

func (r *MetaRepository) query(query string, args ...any) ([]*content.MetaEntry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query post meta: %w", err)
	}
	defer rows.Close()

	var entries []*content.MetaEntry
	for rows.Next() {
		var e content.MetaEntry
		var raw string
		if err := rows.Scan(&e.ID, &e.PostID, &e.Key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan post meta: %w", err)
		}
		e.Value = metavalue.ParseStored(raw)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (r *MetaRepository) Add(postID int64, key string, value metavalue.Value) error {
	query := `INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`

	if _, err := r.db.Exec(query, postID, key, metavalue.Encode(value)); err != nil {
		return fmt.Errorf("failed to add meta %s: %w", key, err)
	}
	return nil
}

func (r *MetaRepository) Set(postID int64, key string, value metavalue.Value) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM postmeta WHERE post_id = ? AND meta_key = ?`, postID, key); err != nil {
		return fmt.Errorf("failed to clear meta %s: %w", key, err)
	}
	if _, err := tx.Exec(`INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`,
		postID, key, metavalue.Encode(value)); err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return tx.Commit()
}

func (r *MetaRepository) DeleteKey(postID int64, key string) error {
	if _, err := r.db.Exec(`DELETE FROM postmeta WHERE post_id = ? AND meta_key = ?`, postID, key); err != nil {
		return fmt.Errorf("failed to delete meta %s: %w", key, err)
	}
	return nil
}

func (r *MetaRepository) ValueExists(key, text string, excludePostID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM postmeta
		WHERE meta_key = ? AND meta_value IN (?, ?) AND post_id != ?)`

	var exists bool
	err := r.db.QueryRow(query, key, text, metavalue.Encode(metavalue.String(text)), excludePostID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check meta value: %w", err)
	}
	return exists, nil
}
