package oplog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
)

func newSQLStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().CreateInstallationSchema(db))
	return NewSQLStore(db)
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, time.Second)
}

func entry(i int) *content.LogEntry {
	return &content.LogEntry{
		ID:        fmt.Sprintf("entry-%03d", i),
		Timestamp: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		Message:   fmt.Sprintf("message %d", i),
		Type:      content.LogTypeSuccess,
		TenantID:  "alpha",
		Context:   map[string]any{"sourcePostId": float64(i)},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sql", func(t *testing.T) { fn(t, newSQLStore(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
}

func TestStoreCapsAtCapacity(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= Capacity+5; i++ {
			require.NoError(t, s.Append(ctx, entry(i)))
		}

		all, err := s.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, Capacity)
		assert.Equal(t, "entry-105", all[0].ID, "newest first")
		assert.Equal(t, "entry-006", all[Capacity-1].ID, "oldest evicted first")
		assert.Equal(t, float64(105), all[0].Context["sourcePostId"])
		assert.True(t, all[0].Timestamp.Equal(entry(105).Timestamp))
	})
}

func TestStoreRecentLimitAndClear(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 10; i++ {
			require.NoError(t, s.Append(ctx, entry(i)))
		}

		some, err := s.Recent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, some, 3)
		assert.Equal(t, "entry-010", some[0].ID)

		require.NoError(t, s.Clear(ctx))
		none, err := s.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStoreConcurrentAppends(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 1; i <= 40; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Append(ctx, entry(i)))
			}(i)
		}
		wg.Wait()

		all, err := s.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 40)
	})
}
