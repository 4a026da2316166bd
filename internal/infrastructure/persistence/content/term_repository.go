package content

import (
	"database/sql"
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/domain/repositories"
)

const termColumns = `id, taxonomy, name, slug, description, parent_id`

type TermRepository struct {
	db *sql.DB
}

func NewTermRepository(db *sql.DB) *TermRepository {
	return &TermRepository{db: db}
}

func (r *TermRepository) TaxonomiesFor(postType string) ([]*content.Taxonomy, error) {
	query := `SELECT name, object_type, hierarchical FROM taxonomies WHERE object_type = ? ORDER BY name`

	rows, err := r.db.Query(query, postType)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomies: %w", err)
	}
	defer rows.Close()

	var taxonomies []*content.Taxonomy
	for rows.Next() {
		var t content.Taxonomy
		if err := rows.Scan(&t.Name, &t.ObjectType, &t.Hierarchical); err != nil {
			return nil, fmt.Errorf("failed to scan taxonomy: %w", err)
		}
		taxonomies = append(taxonomies, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return taxonomies, nil
}

func (r *TermRepository) FindForPost(postID int64, taxonomy string) ([]*content.Term, error) {
	query := `SELECT t.id, t.taxonomy, t.name, t.slug, t.description, t.parent_id
		FROM terms t JOIN term_relationships tr ON tr.term_id = t.id
		WHERE tr.post_id = ? AND tr.taxonomy = ? ORDER BY t.name`

	rows, err := r.db.Query(query, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to query post terms: %w", err)
	}
	defer rows.Close()

	var terms []*content.Term
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return terms, nil
}

func scanTerm(row rowScanner) (*content.Term, error) {
	var t content.Term
	if err := row.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug, &t.Description, &t.ParentID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TermRepository) findOne(query string, args ...any) (*content.Term, error) {
	term, err := scanTerm(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan term: %w", err)
	}
	return term, nil
}

func (r *TermRepository) FindByID(id int64) (*content.Term, error) {
	return r.findOne(`SELECT `+termColumns+` FROM terms WHERE id = ?`, id)
}

func (r *TermRepository) FindBySlug(taxonomy, slug string) (*content.Term, error) {
	return r.findOne(`SELECT `+termColumns+` FROM terms WHERE taxonomy = ? AND slug = ?`, taxonomy, slug)
}

func (r *TermRepository) FindByName(taxonomy, name string) (*content.Term, error) {
	return r.findOne(`SELECT `+termColumns+` FROM terms WHERE taxonomy = ? AND name = ? ORDER BY id LIMIT 1`,
		taxonomy, name)
}

// Create inserts a term. An empty slug is derived from the name. It fails
// with repositories.ErrTermExists when the slug is taken or the name already
// exists under the same parent.
func (r *TermRepository) Create(term *content.Term) (int64, error) {
	slug := term.Slug
	if slug == "" {
		slug = content.Slugify(term.Name)
	}

	var conflict bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM terms
		WHERE taxonomy = ? AND (slug = ? OR (name = ? AND parent_id = ?)))`,
		term.Taxonomy, slug, term.Name, term.ParentID).Scan(&conflict)
	if err != nil {
		return 0, fmt.Errorf("failed to check term: %w", err)
	}
	if conflict {
		return 0, fmt.Errorf("%s in %s: %w", term.Name, term.Taxonomy, repositories.ErrTermExists)
	}

	result, err := r.db.Exec(`INSERT INTO terms (taxonomy, name, slug, description, parent_id) VALUES (?, ?, ?, ?, ?)`,
		term.Taxonomy, term.Name, slug, term.Description, term.ParentID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert term: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new term id: %w", err)
	}
	return id, nil
}

func (r *TermRepository) SetForPost(postID int64, taxonomy string, termIDs []int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM term_relationships WHERE post_id = ? AND taxonomy = ?`, postID, taxonomy); err != nil {
		return fmt.Errorf("failed to clear post terms: %w", err)
	}

	for _, termID := range termIDs {
		_, err := tx.Exec(`INSERT OR IGNORE INTO term_relationships (post_id, term_id, taxonomy) VALUES (?, ?, ?)`,
			postID, termID, taxonomy)
		if err != nil {
			return fmt.Errorf("failed to assign term %d: %w", termID, err)
		}
	}

	return tx.Commit()
}

func (r *TermRepository) FindMeta(termID int64) ([]*content.TermMeta, error) {
	rows, err := r.db.Query(`SELECT term_id, meta_key, meta_value FROM termmeta WHERE term_id = ? ORDER BY id`, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to query term meta: %w", err)
	}
	defer rows.Close()

	var entries []*content.TermMeta
	for rows.Next() {
		var m content.TermMeta
		var raw string
		if err := rows.Scan(&m.TermID, &m.Key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan term meta: %w", err)
		}
		m.Value = metavalue.ParseStored(raw)
		entries = append(entries, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (r *TermRepository) AddMeta(termID int64, key string, value metavalue.Value) error {
	_, err := r.db.Exec(`INSERT INTO termmeta (term_id, meta_key, meta_value) VALUES (?, ?, ?)`,
		termID, key, metavalue.Encode(value))
	if err != nil {
		return fmt.Errorf("failed to add term meta %s: %w", key, err)
	}
	return nil
}

func (r *TermRepository) CountInTaxonomy(taxonomy string) (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM terms WHERE taxonomy = ?`, taxonomy).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count terms: %w", err)
	}
	return count, nil
}
