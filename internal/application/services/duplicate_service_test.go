package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/domain/metavalue"
)

type staticSettings struct {
	settings *content.Settings
}

func (s staticSettings) Get() (*content.Settings, error) { return s.settings, nil }

func TestDuplicateDate(t *testing.T) {
	original := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	older := &content.Settings{PostDate: PostDateDuplicate, OffsetDate: true, OffsetDays: 1, OffsetDirection: OffsetOlder}
	assert.Equal(t, time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC), DuplicateDate(original, fixedNow, older))

	newer := &content.Settings{PostDate: PostDateDuplicate, OffsetDate: true, OffsetDays: 1, OffsetDirection: OffsetNewer}
	assert.Equal(t, time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC), DuplicateDate(original, fixedNow, newer))

	mixed := &content.Settings{PostDate: PostDateCurrent, OffsetDate: true, OffsetHours: 2, OffsetMinutes: 30, OffsetDirection: OffsetNewer}
	assert.Equal(t, fixedNow.Add(150*time.Minute), DuplicateDate(original, fixedNow, mixed))

	disabled := &content.Settings{PostDate: PostDateDuplicate, OffsetDays: 5}
	assert.Equal(t, original, DuplicateDate(original, fixedNow, disabled))
}

func TestDuplicateStatus(t *testing.T) {
	assert.Equal(t, content.StatusPublish, DuplicateStatus(content.StatusPublish, DefaultSettings()))
	assert.Equal(t, content.StatusDraft, DuplicateStatus(content.StatusPublish, &content.Settings{PostStatus: content.StatusDraft}))
	assert.Equal(t, "Hello (Copy)", DuplicateTitle("Hello"))
}

func newDuplicateService(settings *content.Settings) (*DuplicateService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewDuplicateService(staticSettings{settings}, newTestPipeline(pub)).
		WithClock(func() time.Time { return fixedNow })
	return svc, pub
}

func TestDuplicateCopiesPostWithinTenant(t *testing.T) {
	tc := newTestTenant(t, "alpha")
	svc, pub := newDuplicateService(&content.Settings{
		PostStatus: content.StatusDraft, PostDate: PostDateDuplicate,
		OffsetDate: true, OffsetDays: 1, OffsetDirection: OffsetOlder,
	})

	parentID := createPost(t, tc, content.Post{Title: "Parent", Slug: "parent", Type: content.TypePage})
	srcID := createPost(t, tc, content.Post{
		Title: "Child", Slug: "child", Type: content.TypePage, ParentID: parentID, AuthorID: 3,
	})
	cover := seedAttachment(t, tc, "2023/07/cover.jpg", 64, 64, 0)
	require.NoError(t, tc.PostRepo().SetCover(srcID, cover))

	metaRepo := tc.MetaRepo()
	require.NoError(t, metaRepo.Add(srcID, content.MetaPageTemplate, metavalue.String("wide.html")))
	require.NoError(t, metaRepo.Add(srcID, content.MetaEditLock, metavalue.String("1700000000:1")))
	require.NoError(t, metaRepo.Add(srcID, content.MetaDuplicatedFrom, metavalue.Int(1)))
	require.NoError(t, metaRepo.Add(srcID, "related", metavalue.String(fmt.Sprintf("post-%d", srcID))))

	newID, err := svc.Duplicate(context.Background(), tc, srcID, 9)
	require.NoError(t, err)

	post, err := tc.PostRepo().FindByID(newID)
	require.NoError(t, err)
	assert.Equal(t, "Child (Copy)", post.Title)
	assert.Equal(t, "child-copy-1", post.Slug)
	assert.Equal(t, content.StatusDraft, post.Status)
	assert.Equal(t, time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC), post.Date.UTC())
	assert.Equal(t, parentID, post.ParentID)
	assert.Equal(t, int64(9), post.AuthorID)
	assert.Equal(t, cover, post.CoverID)

	assert.Equal(t, []string{"wide.html"}, metaText(t, tc, newID, content.MetaPageTemplate))
	assert.Empty(t, metaText(t, tc, newID, content.MetaEditLock))
	assert.Equal(t, []string{fmt.Sprint(srcID)}, metaText(t, tc, newID, content.MetaDuplicatedFrom))
	assert.Empty(t, metaText(t, tc, newID, content.MetaDuplicatedFromTenant))
	assert.Equal(t, []string{fmt.Sprintf("post-%d", newID)}, metaText(t, tc, newID, "related"))

	fired := pub.ofType(events.AfterDuplicate)
	require.Len(t, fired, 1)
	assert.Equal(t, events.DuplicatePayload{NewID: newID, OldID: srcID}, fired[0].Payload)
}

func TestDuplicateKeepsAuthorWithoutActingUser(t *testing.T) {
	tc := newTestTenant(t, "alpha")
	svc, _ := newDuplicateService(DefaultSettings())
	srcID := createPost(t, tc, content.Post{Title: "Mine", Slug: "mine", AuthorID: 4})

	newID, err := svc.Duplicate(context.Background(), tc, srcID, 0)
	require.NoError(t, err)
	post, err := tc.PostRepo().FindByID(newID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), post.AuthorID)
	assert.Equal(t, content.StatusPublish, post.Status)
}

func TestDuplicateResetsProductFields(t *testing.T) {
	tc := newTestTenant(t, "alpha")
	svc, _ := newDuplicateService(DefaultSettings())

	cat, err := tc.TermRepo().Create(&content.Term{Taxonomy: "product_cat", Name: "Shoes", Slug: "shoes"})
	require.NoError(t, err)

	srcID := createPost(t, tc, content.Post{Title: "Boot", Slug: "boot", Type: content.TypeProduct})
	metaRepo := tc.MetaRepo()
	require.NoError(t, metaRepo.Add(srcID, content.MetaSKU, metavalue.String("BOOT-1")))
	require.NoError(t, metaRepo.Add(srcID, content.MetaManageStock, metavalue.String("yes")))
	require.NoError(t, metaRepo.Add(srcID, content.MetaStock, metavalue.String("12")))
	require.NoError(t, metaRepo.Add(srcID, content.MetaStockStatus, metavalue.String("instock")))
	require.NoError(t, metaRepo.Add(srcID, content.MetaDownloadCount, metavalue.String("40")))
	require.NoError(t, tc.TermRepo().SetForPost(srcID, "product_cat", []int64{cat}))

	newID, err := svc.Duplicate(context.Background(), tc, srcID, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{fmt.Sprintf("BOOT-1-copy-%d", fixedNow.Unix())}, metaText(t, tc, newID, content.MetaSKU))
	assert.Equal(t, []string{"0"}, metaText(t, tc, newID, content.MetaStock))
	assert.Equal(t, []string{"outofstock"}, metaText(t, tc, newID, content.MetaStockStatus))
	assert.Empty(t, metaText(t, tc, newID, content.MetaDownloadCount))
	assert.Equal(t, []string{"BOOT-1"}, metaText(t, tc, srcID, content.MetaSKU))

	terms, err := tc.TermRepo().FindForPost(newID, "product_cat")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, cat, terms[0].ID)

	// a second copy in the same second gets a numbered sku
	second, err := svc.Duplicate(context.Background(), tc, srcID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{fmt.Sprintf("BOOT-1-copy-%d-1", fixedNow.Unix())}, metaText(t, tc, second, content.MetaSKU))
}

func TestRewriteBuilderIDs(t *testing.T) {
	doc := `{"id":5,"post_id":"5","widgets":[{"id":50,"link":"/?p=5"}]}`
	out := RewriteBuilderIDs(metavalue.String(doc), 5, 8)
	s, ok := out.Str()
	require.True(t, ok)
	assert.Equal(t, `{"id":8,"post_id":8,"widgets":[{"id":50,"link":"/?p=8"}]}`, s)

	structured := metavalue.Map(metavalue.F("post_id", metavalue.Int(5)))
	got, _ := RewriteBuilderIDs(structured, 5, 8).Get("post_id")
	n, _ := got.Int64()
	assert.Equal(t, int64(8), n)
}

func TestReplacePostIDIsSubstringReplacement(t *testing.T) {
	out := ReplacePostID(metavalue.List(metavalue.String("12 and 120"), metavalue.Int(12)), 12, 7)
	assert.Equal(t, "7 and 70", out.Items()[0].Text())
	assert.Equal(t, "12", out.Items()[1].Text(), "numbers are left alone")
}

func TestDuplicateErrors(t *testing.T) {
	tc := newTestTenant(t, "alpha")
	svc, pub := newDuplicateService(DefaultSettings())

	_, err := svc.Duplicate(context.Background(), tc, 404, 1)
	assert.True(t, errkind.Is(err, errkind.NotFound))

	_, err = svc.Duplicate(context.Background(), tc, 0, 1)
	assert.True(t, errkind.Is(err, errkind.ValidationFailed))
	assert.Empty(t, pub.ofType(events.AfterDuplicate))
}
