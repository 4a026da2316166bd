package content

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
	"github.com/AtRiskMedia/postdup-go/internal/domain/repositories"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().CreateSchema(db))
	return db
}

func TestPostRepositoryCreateAndFind(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))
	date := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	id, err := repo.Create(&content.Post{Title: "Hello", Slug: "hello", Date: date, AuthorID: 3})
	require.NoError(t, err)

	post, err := repo.FindByID(id)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, content.TypePost, post.Type)
	assert.Equal(t, content.StatusDraft, post.Status)
	assert.Equal(t, "open", post.CommentStatus)
	assert.True(t, date.Equal(post.Date))

	missing, err := repo.FindByID(9999)
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpdateContent(id, "body"))
	require.NoError(t, repo.SetCover(id, 42))
	post, err = repo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, "body", post.Content)
	assert.Equal(t, int64(42), post.CoverID)

	assert.Error(t, repo.UpdateContent(9999, "x"))
}

func TestPostRepositorySlugExists(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))

	id, err := repo.Create(&content.Post{Title: "A", Slug: "taken"})
	require.NoError(t, err)
	_, err = repo.Create(&content.Post{Title: "B", Slug: "binned", Status: content.StatusTrash})
	require.NoError(t, err)

	exists, err := repo.SlugExists("taken", content.TypePost, 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists("taken", content.TypePost, id)
	require.NoError(t, err)
	assert.False(t, exists, "excluded id must not count")

	exists, err = repo.SlugExists("taken", content.TypePage, 0)
	require.NoError(t, err)
	assert.False(t, exists, "slugs are per type")

	exists, err = repo.SlugExists("binned", content.TypePost, 0)
	require.NoError(t, err)
	assert.False(t, exists, "trashed posts do not reserve slugs")
}

func TestPostRepositoryList(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		_, err := repo.Create(&content.Post{Title: "Post", Date: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := repo.Create(&content.Post{Title: "Needle_100%", Date: base})
	require.NoError(t, err)
	_, err = repo.Create(&content.Post{Title: "Needle trashed", Status: content.StatusTrash})
	require.NoError(t, err)

	page, err := repo.List(content.PostQuery{Type: content.TypePost})
	require.NoError(t, err)
	assert.Equal(t, 26, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Posts, 20)
	assert.True(t, page.Posts[0].Date.After(page.Posts[19].Date), "newest first")

	page2, err := repo.List(content.PostQuery{Type: content.TypePost, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page2.Posts, 6)

	found, err := repo.List(content.PostQuery{Search: "needle_100%"})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, "Needle_100%", found.Posts[0].Title)
}

func TestPostRepositoryChildrenAndGUID(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))

	parent, err := repo.Create(&content.Post{Title: "Parent"})
	require.NoError(t, err)
	_, err = repo.Create(&content.Post{
		Title: "photo", Type: content.TypeAttachment, Status: content.StatusInherit,
		ParentID: parent, GUID: "https://a.example.com/media/2024/01/photo.jpg",
	})
	require.NoError(t, err)

	children, err := repo.FindChildren(parent, content.TypeAttachment)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "photo", children[0].Title)

	renamed, err := repo.Create(&content.Post{
		Title: "photo", Type: content.TypeAttachment, Status: content.StatusInherit,
		GUID: "https://a.example.com/media/2024/01/photo-1.jpg",
	})
	require.NoError(t, err)

	ids, err := repo.FindAttachmentsByGUIDFragment("photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []int64{children[0].ID}, ids)

	ids, err = repo.FindAttachmentsByGUIDFragment("/photo")
	require.NoError(t, err)
	assert.Equal(t, []int64{children[0].ID, renamed}, ids)

	ids, err = repo.FindAttachmentsByGUIDFragment("other.jpg")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMetaRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostRepository(db)
	meta := NewMetaRepository(db)

	postID, err := posts.Create(&content.Post{Title: "M"})
	require.NoError(t, err)

	doc := metavalue.Map(metavalue.F("b", metavalue.Int(2)), metavalue.F("a", metavalue.String("x")))
	require.NoError(t, meta.Add(postID, "_doc", doc))
	require.NoError(t, meta.Add(postID, "color", metavalue.String("red")))
	require.NoError(t, meta.Add(postID, "color", metavalue.String("blue")))

	all, err := meta.FindAll(postID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, metavalue.Equal(doc, all[0].Value))

	colors, err := meta.FindByKey(postID, "color")
	require.NoError(t, err)
	require.Len(t, colors, 2)

	require.NoError(t, meta.Set(postID, "color", metavalue.String("green")))
	colors, err = meta.FindByKey(postID, "color")
	require.NoError(t, err)
	require.Len(t, colors, 1)
	assert.Equal(t, "green", colors[0].Value.Text())

	exists, err := meta.ValueExists("color", "green", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = meta.ValueExists("color", "green", postID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, meta.DeleteKey(postID, "color"))
	colors, err = meta.FindByKey(postID, "color")
	require.NoError(t, err)
	assert.Empty(t, colors)
}

func TestMetaRepositoryReadsPlainText(t *testing.T) {
	db := newTestDB(t)
	postID, err := NewPostRepository(db).Create(&content.Post{Title: "M"})
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, 'legacy', 'not json')`, postID)
	require.NoError(t, err)

	entries, err := NewMetaRepository(db).FindByKey(postID, "legacy")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "not json", entries[0].Value.Text())
}

func TestTermRepository(t *testing.T) {
	db := newTestDB(t)
	terms := NewTermRepository(db)
	posts := NewPostRepository(db)

	taxonomies, err := terms.TaxonomiesFor(content.TypePost)
	require.NoError(t, err)
	require.Len(t, taxonomies, 2)
	assert.Equal(t, "category", taxonomies[0].Name)
	assert.True(t, taxonomies[0].Hierarchical)

	pageTaxonomies, err := terms.TaxonomiesFor(content.TypePage)
	require.NoError(t, err)
	assert.Empty(t, pageTaxonomies)

	parentID, err := terms.Create(&content.Term{Taxonomy: "category", Name: "News"})
	require.NoError(t, err)
	childID, err := terms.Create(&content.Term{Taxonomy: "category", Name: "Local News", ParentID: parentID})
	require.NoError(t, err)

	child, err := terms.FindBySlug("category", "local-news")
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, parentID, child.ParentID)

	_, err = terms.Create(&content.Term{Taxonomy: "category", Name: "News", Slug: "news-2"})
	assert.ErrorIs(t, err, repositories.ErrTermExists)
	_, err = terms.Create(&content.Term{Taxonomy: "category", Name: "Other", Slug: "news"})
	assert.ErrorIs(t, err, repositories.ErrTermExists)

	byName, err := terms.FindByName("category", "News")
	require.NoError(t, err)
	assert.Equal(t, parentID, byName.ID)

	postID, err := posts.Create(&content.Post{Title: "P"})
	require.NoError(t, err)
	require.NoError(t, terms.SetForPost(postID, "category", []int64{parentID, childID}))
	require.NoError(t, terms.SetForPost(postID, "category", []int64{childID}))

	assigned, err := terms.FindForPost(postID, "category")
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, childID, assigned[0].ID)

	require.NoError(t, terms.AddMeta(childID, "color", metavalue.String("teal")))
	tm, err := terms.FindMeta(childID)
	require.NoError(t, err)
	require.Len(t, tm, 1)
	assert.Equal(t, "teal", tm[0].Value.Text())

	count, err := terms.CountInTaxonomy("category")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAttachmentRepository(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))

	md := &content.AttachmentMetadata{
		Width: 800, Height: 600, File: "2024/01/photo.jpg",
		Sizes: map[string]content.Rendition{
			"thumbnail": {File: "photo-150x150.jpg", Width: 150, Height: 150, MimeType: "image/jpeg"},
		},
	}
	id, err := repo.Create(&content.Attachment{
		Post:     &content.Post{Title: "photo", MimeType: "image/jpeg"},
		File:     "2024/01/photo.jpg",
		Metadata: md,
	})
	require.NoError(t, err)

	a, err := repo.FindByID(id)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, content.StatusInherit, a.Post.Status)
	assert.Equal(t, "2024/01/photo.jpg", a.File)
	assert.Equal(t, md, a.Metadata)

	md.Width = 1024
	require.NoError(t, repo.UpdateMetadata(id, md))
	a, err = repo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, 1024, a.Metadata.Width)

	postID, err := repo.posts.Create(&content.Post{Title: "not an attachment"})
	require.NoError(t, err)
	notAttachment, err := repo.FindByID(postID)
	require.NoError(t, err)
	assert.Nil(t, notAttachment)
}

func TestPostRepositoryErrorPaths(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("disk I/O error"))
	_, err = repo.SlugExists("x", content.TypePost, 0)
	assert.ErrorContains(t, err, "failed to check slug")

	mock.ExpectExec("INSERT INTO posts").WillReturnError(errors.New("readonly database"))
	_, err = repo.Create(&content.Post{Title: "x"})
	assert.ErrorContains(t, err, "failed to insert post")

	mock.ExpectExec("UPDATE posts SET content").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorContains(t, repo.UpdateContent(7, "x"), "post 7 not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetaRepositorySetRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM postmeta").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO postmeta").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err = NewMetaRepository(db).Set(1, "k", metavalue.String("v"))
	assert.ErrorContains(t, err, "failed to set meta k")
	assert.NoError(t, mock.ExpectationsWereMet())
}
