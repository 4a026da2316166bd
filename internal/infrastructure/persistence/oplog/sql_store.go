package oplog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
)

// SQLStore keeps the log in the installation database.
type SQLStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Append(ctx context.Context, entry *content.LogEntry) error {
	var rawContext sql.NullString
	if len(entry.Context) > 0 {
		data, err := json.Marshal(entry.Context)
		if err != nil {
			return fmt.Errorf("failed to encode log context: %w", err)
		}
		rawContext = sql.NullString{String: string(data), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO oplog (id, created_at, message, type, context, tenant_id) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.Message, entry.Type, rawContext, entry.TenantID)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM oplog WHERE seq NOT IN (SELECT seq FROM oplog ORDER BY seq DESC LIMIT ?)`, Capacity)
	if err != nil {
		return fmt.Errorf("failed to trim log: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]*content.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, message, type, context, tenant_id
		FROM oplog ORDER BY seq DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer rows.Close()

	entries := []*content.LogEntry{}
	for rows.Next() {
		var e content.LogEntry
		var createdAt string
		var rawContext sql.NullString
		if err := rows.Scan(&e.ID, &createdAt, &e.Message, &e.Type, &rawContext, &e.TenantID); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		if rawContext.Valid && rawContext.String != "" {
			if err := json.Unmarshal([]byte(rawContext.String), &e.Context); err != nil {
				return nil, fmt.Errorf("failed to decode log context: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM oplog`); err != nil {
		return fmt.Errorf("failed to clear log: %w", err)
	}
	return nil
}
