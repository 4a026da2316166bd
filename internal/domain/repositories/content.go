// Package repositories defines the repository interfaces for content entities.
// These repositories abstract the data persistence details, ensuring the core
// application is clean and decoupled from the database.
//
// Every repository is bound to one tenant's store; the tenant is chosen when
// the repository is obtained from a tenant.Context.
package repositories

import (
	"errors"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
)

// ErrTermExists is returned by TermRepository.Create when the taxonomy
// already holds a term with the same name under the same parent, or the
// same slug.
var ErrTermExists = errors.New("term already exists")

type PostRepository interface {
	FindByID(id int64) (*content.Post, error)
	Create(post *content.Post) (int64, error)
	UpdateContent(id int64, body string) error
	SetParent(id, parentID int64) error
	SetCover(id, coverID int64) error
	List(query content.PostQuery) (*content.PostPage, error)
	SlugExists(slug, postType string, excludeID int64) (bool, error)
	FindAttachmentsByGUIDFragment(fragment string) ([]int64, error)
	FindChildren(parentID int64, postType string) ([]*content.Post, error)
}

type MetaRepository interface {
	FindAll(postID int64) ([]*content.MetaEntry, error)
	FindByKey(postID int64, key string) ([]*content.MetaEntry, error)
	Add(postID int64, key string, value metavalue.Value) error
	// Set replaces every entry under key with a single value.
	Set(postID int64, key string, value metavalue.Value) error
	DeleteKey(postID int64, key string) error
	// ValueExists reports whether any post other than excludePostID stores
	// text under key.
	ValueExists(key, text string, excludePostID int64) (bool, error)
}

type TermRepository interface {
	TaxonomiesFor(postType string) ([]*content.Taxonomy, error)
	FindForPost(postID int64, taxonomy string) ([]*content.Term, error)
	FindByID(id int64) (*content.Term, error)
	FindBySlug(taxonomy, slug string) (*content.Term, error)
	FindByName(taxonomy, name string) (*content.Term, error)
	Create(term *content.Term) (int64, error)
	// SetForPost replaces the post's assignment within one taxonomy.
	SetForPost(postID int64, taxonomy string, termIDs []int64) error
	FindMeta(termID int64) ([]*content.TermMeta, error)
	AddMeta(termID int64, key string, value metavalue.Value) error
	CountInTaxonomy(taxonomy string) (int, error)
}

type AttachmentRepository interface {
	FindByID(id int64) (*content.Attachment, error)
	Create(attachment *content.Attachment) (int64, error)
	UpdateMetadata(id int64, metadata *content.AttachmentMetadata) error
}
