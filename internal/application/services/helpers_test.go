package services

import (
	"database/sql"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newTestTenant(t *testing.T, id string) *tenant.Context {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().CreateSchema(db))

	cfg := &tenant.Config{
		TenantID:  id,
		Name:      id,
		SiteURL:   "https://" + id + ".example.com",
		Status:    "active",
		JWTSecret: "secret-" + id,
		MediaRoot: t.TempDir(),
	}
	return tenant.NewContext(cfg, tenant.WrapDatabase(id, db))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestPipeline(pub events.Publisher) Pipeline {
	p := NewPipeline(nil, pub, performance.NewTracker(nil), metrics.New(prometheus.NewRegistry()))
	p.Slugs = p.Slugs.WithClock(func() time.Time { return fixedNow })
	return p
}

func createPost(t *testing.T, tc *tenant.Context, post content.Post) int64 {
	t.Helper()
	if post.Status == "" {
		post.Status = content.StatusPublish
	}
	if post.Date.IsZero() {
		post.Date = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	}
	id, err := tc.PostRepo().Create(&post)
	require.NoError(t, err)
	return id
}

// seedAttachment writes a w x h JPEG at relPath and registers it with
// generated renditions, parented to parentID.
func seedAttachment(t *testing.T, tc *tenant.Context, relPath string, w, h int, parentID int64) int64 {
	t.Helper()
	processor := Processor(tc)
	full := processor.Path(relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{B: 180, A: 255}), full))

	id, err := tc.AttachmentRepo().Create(&content.Attachment{
		Post: &content.Post{
			Title:    filepath.Base(relPath),
			Slug:     content.Slugify(filepath.Base(relPath)),
			Date:     time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
			ParentID: parentID,
			MimeType: "image/jpeg",
			GUID:     tc.Config.MediaURL(relPath),
		},
		File: relPath,
	})
	require.NoError(t, err)

	md, err := processor.GenerateMetadata(relPath, "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, tc.AttachmentRepo().UpdateMetadata(id, md))
	return id
}

func metaText(t *testing.T, tc *tenant.Context, postID int64, key string) []string {
	t.Helper()
	entries, err := tc.MetaRepo().FindByKey(postID, key)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Value.Text()
	}
	return out
}
