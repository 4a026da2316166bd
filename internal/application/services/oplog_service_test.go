package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/oplog"
)

func newTestOplog(t *testing.T, broadcaster messaging.Broadcaster) *OplogService {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().CreateInstallationSchema(db))

	svc := NewOplogService(oplog.NewSQLStore(db), broadcaster, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestOplogAppendAndRecent(t *testing.T) {
	broadcaster := messaging.NewLogBroadcaster(nil)
	viewer := broadcaster.AddClient()
	defer broadcaster.RemoveClient(viewer)

	svc := newTestOplog(t, broadcaster)
	ctx := context.Background()

	require.NoError(t, svc.Success(ctx, "beta", "first", map[string]any{"sourcePostId": 1}))
	require.NoError(t, svc.Error(ctx, "beta", "second", nil))

	entries, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Message)
	assert.Equal(t, content.LogTypeError, entries[0].Type)
	assert.Equal(t, "first", entries[1].Message)
	assert.Equal(t, "beta", entries[1].TenantID)
	assert.Equal(t, fixedNow, entries[1].Timestamp.UTC())
	assert.NotEmpty(t, entries[1].ID)

	select {
	case got := <-viewer:
		assert.Equal(t, "first", got.Message)
	default:
		t.Fatal("expected entry to be broadcast")
	}
}

func TestOplogErrorsFiltersSuccesses(t *testing.T) {
	svc := newTestOplog(t, nil)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if i%3 == 0 {
			require.NoError(t, svc.Error(ctx, "beta", fmt.Sprintf("error %d", i), nil))
			continue
		}
		require.NoError(t, svc.Success(ctx, "beta", fmt.Sprintf("ok %d", i), nil))
	}

	errs, err := svc.Errors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "error 3", errs[0].Message)
	assert.Equal(t, "error 0", errs[1].Message)

	// only the newest 2*limit entries are scanned
	errs, err = svc.Errors(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, errs)

	require.NoError(t, svc.Clear(ctx))
	entries, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOplogAppendFailureIsReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	svc := NewOplogService(oplog.NewSQLStore(db), nil, nil, nil)
	err = svc.Error(context.Background(), "beta", "lost", nil)
	assert.ErrorContains(t, err, "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
