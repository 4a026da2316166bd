package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

type bulkFixture struct {
	svc   *BulkService
	oplog *OplogService
	pub   *recordingPublisher
	src   *tenant.Context
	dst   *tenant.Context
}

func newBulkFixture(t *testing.T) bulkFixture {
	t.Helper()
	src := newTestTenant(t, "alpha")
	dst := newTestTenant(t, "beta")
	pub := &recordingPublisher{}
	pipeline := newTestPipeline(pub)
	clock := func() time.Time { return fixedNow }

	cross := NewCrossTenantService(tenant.StaticResolver{"alpha": src, "beta": dst}, pipeline).WithClock(clock)
	single := NewDuplicateService(staticSettings{DefaultSettings()}, pipeline).WithClock(clock)
	ops := newTestOplog(t, nil)

	return bulkFixture{
		svc:   NewBulkService(cross, single, ops, pipeline),
		oplog: ops,
		pub:   pub,
		src:   src,
		dst:   dst,
	}
}

func TestDuplicateBatchContinuesPastFailures(t *testing.T) {
	f := newBulkFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 1; i <= 5; i++ {
		ids = append(ids, createPost(t, f.src, content.Post{Title: fmt.Sprintf("Post %d", i), Slug: fmt.Sprintf("post-%d", i)}))
	}
	missing := ids[2] + 100
	ids[2] = missing

	result, err := f.svc.DuplicateBatch(ctx, BatchRequest{
		SourceTenant: "alpha",
		DestTenant:   "beta",
		PostIDs:      ids,
		Options:      DefaultCrossTenantOptions(),
		ItemTimeout:  time.Minute,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.BatchID)
	require.Len(t, result.Success, 4)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, missing, result.Errors[0].SourcePostID)
	assert.Equal(t, string(errkind.NotFound), result.Errors[0].Code)

	for _, s := range result.Success {
		post, err := f.dst.PostRepo().FindByID(s.DestinationPostID)
		require.NoError(t, err)
		require.NotNil(t, post, "destination post %d", s.DestinationPostID)
	}

	entries, err := f.oplog.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	var failures, successes int
	for _, e := range entries {
		assert.Equal(t, "beta", e.TenantID)
		assert.Equal(t, result.BatchID, e.Context["batchId"])
		switch e.Type {
		case content.LogTypeError:
			failures++
			assert.Equal(t, fmt.Sprintf("Failed to duplicate post %d from alpha to beta", missing), e.Message)
		case content.LogTypeSuccess:
			successes++
			assert.True(t, strings.HasPrefix(e.Message, "Successfully duplicated post "), e.Message)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 4, successes)

	assert.Len(t, f.pub.ofType(events.AfterBulkDuplicateItem), 4)
	summary := f.pub.ofType(events.AfterBulkDuplicate)
	require.Len(t, summary, 1)
	payload := summary[0].Payload.(events.BulkPayload)
	assert.Equal(t, 5, payload.Requested)
	assert.Equal(t, 4, payload.Succeeded)
	assert.Equal(t, 1, payload.Failed)
	assert.Equal(t, ModeCrossTenant, payload.Mode)
}

func TestDuplicateBatchLogsAfterCancellation(t *testing.T) {
	f := newBulkFixture(t)
	a := createPost(t, f.src, content.Post{Title: "A", Slug: "a"})
	b := createPost(t, f.src, content.Post{Title: "B", Slug: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.DuplicateBatch(ctx, BatchRequest{
		SourceTenant: "alpha",
		DestTenant:   "beta",
		PostIDs:      []int64{a, b},
		Options:      DefaultCrossTenantOptions(),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Success)
	require.Len(t, result.Errors, 2)

	entries, err := f.oplog.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, content.LogTypeError, e.Type)
		assert.Equal(t, result.BatchID, e.Context["batchId"])
	}
}

func TestDuplicateBatchValidation(t *testing.T) {
	f := newBulkFixture(t)
	_, err := f.svc.DuplicateBatch(context.Background(), BatchRequest{SourceTenant: "alpha", DestTenant: "beta"})
	assert.True(t, errkind.Is(err, errkind.ValidationFailed))
}

func TestDuplicateMany(t *testing.T) {
	f := newBulkFixture(t)
	a := createPost(t, f.src, content.Post{Title: "A", Slug: "a"})
	b := createPost(t, f.src, content.Post{Title: "B", Slug: "b"})

	result, err := f.svc.DuplicateMany(context.Background(), f.src, []int64{a, 999, b}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Duplicated)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.NewIDs, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, int64(999), result.Failures[0].SourcePostID)

	post, err := f.src.PostRepo().FindByID(result.NewIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "B (Copy)", post.Title)

	summary := f.pub.ofType(events.AfterBulkDuplicate)
	require.Len(t, summary, 1)
	assert.Equal(t, ModeSingle, summary[0].Payload.(events.BulkPayload).Mode)
}
