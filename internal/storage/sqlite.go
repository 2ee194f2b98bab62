package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteDSN returns a modernc.org/sqlite data source name with the pragmas
// every pkgdocs database handle uses.
func SQLiteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// OpenSQLite opens the database at path and applies schema.
func OpenSQLite(ctx context.Context, path, schema string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

const recordsSchema = `
CREATE TABLE IF NOT EXISTS releases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	build_status INTEGER NOT NULL,
	has_docs INTEGER NOT NULL,
	has_examples INTEGER NOT NULL,
	rustc_version TEXT NOT NULL,
	docsbuilder_version TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE(name, version)
);
CREATE TABLE IF NOT EXISTS builds (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	release_id INTEGER NOT NULL REFERENCES releases(id),
	build_id TEXT NOT NULL,
	build_status INTEGER NOT NULL,
	rustc_version TEXT NOT NULL,
	docsbuilder_version TEXT NOT NULL,
	orchestrator_version TEXT NOT NULL,
	output TEXT NOT NULL,
	targets TEXT,
	built_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_release ON builds(release_id);
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	prefix TEXT NOT NULL,
	hash TEXT NOT NULL,
	size INTEGER NOT NULL,
	mime TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_prefix ON files(prefix);
`
