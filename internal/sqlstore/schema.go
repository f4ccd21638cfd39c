// Package sqlstore is the SQL persistence port from spec.md section 6:
// it implements the Backend interfaces internal/objectstore,
// internal/branchstore, internal/workingcache, and internal/tags each
// declare, against the four (plus commit_tags) tables via
// database/sql and github.com/ncruces/go-sqlite3.
//
// Grounded on BeadsLog internal/storage/sqlite/schema.go: a single
// embedded schema string, CREATE TABLE IF NOT EXISTS, explicit indexes,
// migrated the same way (schema_version bookkeeping table), generalized
// from issues/dependencies to databases/branches/commits/working_commits/
// commit_tags.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite3" database/sql driver, CGo-free (WASM via
	// wazero). Matches BeadsLog internal/syncbranch's import pattern.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// schemaVersion is the migration level this build targets. Bumped when
// the embedded schema changes in a way old rows can't just grow into.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS databases (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	default_branch_name TEXT NOT NULL DEFAULT 'main'
);

CREATE TABLE IF NOT EXISTS branches (
	database_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	parent_branch_name TEXT DEFAULT '',
	current_commit_hash TEXT NOT NULL DEFAULT '',
	commit_message TEXT DEFAULT '',
	author TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (database_id, name),
	FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_branches_status ON branches(database_id, status);

CREATE TABLE IF NOT EXISTS commits (
	hash TEXT PRIMARY KEY,
	database_id TEXT NOT NULL,
	parent_hash TEXT DEFAULT '',
	author TEXT DEFAULT '',
	message TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	data BLOB NOT NULL,
	data_size INTEGER NOT NULL DEFAULT 0,
	schema_classes_count INTEGER NOT NULL DEFAULT 0,
	instances_count INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_commits_database ON commits(database_id);
CREATE INDEX IF NOT EXISTS idx_commits_parent ON commits(parent_hash);

CREATE TABLE IF NOT EXISTS working_commits (
	id TEXT PRIMARY KEY,
	database_id TEXT NOT NULL,
	branch_name TEXT DEFAULT '',
	based_on_hash TEXT DEFAULT '',
	author TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	schema_data TEXT NOT NULL DEFAULT '{}',
	instances_data TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'active',
	merge_state TEXT DEFAULT '',
	FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_working_commits_branch ON working_commits(database_id, branch_name, status);

CREATE TABLE IF NOT EXISTS commit_tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_hash TEXT NOT NULL,
	tag_type TEXT NOT NULL,
	tag_name TEXT NOT NULL,
	tag_description TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_by TEXT DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	UNIQUE (commit_hash, tag_type, tag_name),
	FOREIGN KEY (commit_hash) REFERENCES commits(hash) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_commit_tags_commit ON commit_tags(commit_hash);
CREATE INDEX IF NOT EXISTS idx_commit_tags_type_name ON commit_tags(tag_type, tag_name);
`

// Open opens (creating if absent) a SQLite database at path and applies
// the embedded schema. Callers own the returned *sql.DB's lifetime.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := stampVersion(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func stampVersion(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, fmt.Sprint(schemaVersion))
	if err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return nil
}
