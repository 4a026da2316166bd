// Package database provides tenant instantiation
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema for a tenant
// content store and for the installation store.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tenant's database
// tables and indexes. Safe to run against an existing store.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	return run(db, tables, indexes, seeds)
}

// CreateInstallationSchema builds the settings and operation log tables
// shared by every tenant of an installation.
func (tc *TableCreator) CreateInstallationSchema(db *sql.DB) error {
	return run(db, installationTables, installationIndexes, nil)
}

func run(db *sql.DB, tableSQL, indexSQL, seedSQL []string) error {
	for _, q := range tableSQL {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", q, err)
		}
	}

	for _, q := range indexSQL {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", q, err)
		}
	}

	for _, q := range seedSQL {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("failed to seed for query [%s]: %w", q, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_type TEXT NOT NULL DEFAULT 'post',
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		excerpt TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		author_id INTEGER NOT NULL DEFAULT 0,
		post_date TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		parent_id INTEGER NOT NULL DEFAULT 0,
		comment_status TEXT NOT NULL DEFAULT 'open',
		ping_status TEXT NOT NULL DEFAULT 'open',
		mime_type TEXT NOT NULL DEFAULT '',
		guid TEXT NOT NULL DEFAULT '',
		cover_id INTEGER NOT NULL DEFAULT 0,
		modified TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS postmeta (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		meta_key TEXT NOT NULL,
		meta_value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS taxonomies (
		name TEXT NOT NULL,
		object_type TEXT NOT NULL,
		hierarchical INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (name, object_type)
	)`,
	`CREATE TABLE IF NOT EXISTS terms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taxonomy TEXT NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		parent_id INTEGER NOT NULL DEFAULT 0,
		UNIQUE (taxonomy, slug)
	)`,
	`CREATE TABLE IF NOT EXISTS termmeta (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		term_id INTEGER NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
		meta_key TEXT NOT NULL,
		meta_value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS term_relationships (
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		term_id INTEGER NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
		taxonomy TEXT NOT NULL,
		PRIMARY KEY (post_id, term_id)
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug, post_type)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_id, post_type)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_type_date ON posts(post_type, post_date)`,
	`CREATE INDEX IF NOT EXISTS idx_postmeta_post_key ON postmeta(post_id, meta_key)`,
	`CREATE INDEX IF NOT EXISTS idx_postmeta_key ON postmeta(meta_key)`,
	`CREATE INDEX IF NOT EXISTS idx_terms_name ON terms(taxonomy, name)`,
	`CREATE INDEX IF NOT EXISTS idx_termmeta_term ON termmeta(term_id)`,
	`CREATE INDEX IF NOT EXISTS idx_term_rel_taxonomy ON term_relationships(post_id, taxonomy)`,
}

var seeds = []string{
	`INSERT OR IGNORE INTO taxonomies (name, object_type, hierarchical) VALUES ('category', 'post', 1)`,
	`INSERT OR IGNORE INTO taxonomies (name, object_type, hierarchical) VALUES ('post_tag', 'post', 0)`,
	`INSERT OR IGNORE INTO taxonomies (name, object_type, hierarchical) VALUES ('product_cat', 'product', 1)`,
	`INSERT OR IGNORE INTO taxonomies (name, object_type, hierarchical) VALUES ('product_tag', 'product', 0)`,
}

var installationTables = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oplog (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		context TEXT,
		tenant_id TEXT NOT NULL DEFAULT ''
	)`,
}

var installationIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_oplog_type ON oplog(type)`,
}
