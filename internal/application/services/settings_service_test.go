package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/network"
)

func TestSanitizeSettings(t *testing.T) {
	out := SanitizeSettings(content.Settings{
		PostStatus:      "archived",
		PostDate:        "yesterday",
		OffsetDirection: "sideways",
		OffsetDays:      -3,
		OffsetHours:     4,
		OffsetMinutes:   -1,
		OffsetSeconds:   30,
		OffsetDate:      true,
	})

	assert.Equal(t, StatusSame, out.PostStatus)
	assert.Equal(t, PostDateDuplicate, out.PostDate)
	assert.Equal(t, OffsetOlder, out.OffsetDirection)
	assert.Equal(t, 0, out.OffsetDays)
	assert.Equal(t, 4, out.OffsetHours)
	assert.Equal(t, 0, out.OffsetMinutes)
	assert.Equal(t, 30, out.OffsetSeconds)
	assert.True(t, out.OffsetDate)

	kept := SanitizeSettings(content.Settings{PostStatus: content.StatusPending, PostDate: PostDateCurrent, OffsetDirection: OffsetNewer})
	assert.Equal(t, content.StatusPending, kept.PostStatus)
	assert.Equal(t, PostDateCurrent, kept.PostDate)
	assert.Equal(t, OffsetNewer, kept.OffsetDirection)
}

func TestSettingsServiceRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().CreateInstallationSchema(db))

	svc := NewSettingsService(network.NewSettingsRepository(db))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)

	stored, err := svc.Update(content.Settings{PostStatus: content.StatusDraft, PostDate: "bogus", OffsetDays: -1})
	require.NoError(t, err)
	assert.Equal(t, PostDateDuplicate, stored.PostDate)

	got, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.Equal(t, content.StatusDraft, got.PostStatus)
}
