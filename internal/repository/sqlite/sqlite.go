// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the Go binary as a single file.
// No separate database server to install or manage, and ":memory:" gives every test
// its own throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of the SQLite C code, so no C compiler
// is needed and cross-compilation just works.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB   is a connection pool (NOT a single connection!)
//   - sql.Row  is a single result row
//   - sql.Rows is multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// The blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the UserStore, RepositoryStore
// and BookmarkStore interfaces (see user.go, repositories.go, bookmarks.go).
type DB struct {
	conn *sql.DB
}

// connectionPragmas are applied by the driver to EVERY new connection in the pool.
//
// WHY IN THE DSN AND NOT conn.Exec("PRAGMA ...")?
// sql.DB is a pool. A PRAGMA executed with conn.Exec only reaches whichever connection
// happened to run it. foreign_keys in particular is per-connection and OFF by default,
// and bookmark cleanup on repository delete depends on it (ON DELETE CASCADE).
//
// busy_timeout makes a writer wait up to 5s for the write lock instead of failing
// immediately with SQLITE_BUSY when two requests write at once.
var connectionPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/repohub.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a brand new, empty database.
	// Pin the pool to one connection so all queries see the same tables.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// PingContext is used by the /healthz endpoint.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func dsn(dbPath string) string {
	params := make([]string, 0, len(connectionPragmas))
	for _, p := range connectionPragmas {
		if isMemory(dbPath) && strings.HasPrefix(p, "journal_mode") {
			continue // WAL needs a file
		}
		params = append(params, "_pragma="+p)
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

func isMemory(dbPath string) bool {
	return strings.HasPrefix(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory")
}

// migrate creates the schema.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start. Statements run one by one
// so a failure names the table it happened on.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id           TEXT PRIMARY KEY,
				username     TEXT NOT NULL UNIQUE,
				is_admin     INTEGER NOT NULL DEFAULT 0,
				github_token TEXT NOT NULL DEFAULT '',
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"repositories", `
			CREATE TABLE IF NOT EXISTS repositories (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				url         TEXT NOT NULL,
				tech_stack  TEXT NOT NULL DEFAULT '[]',
				user_id     TEXT NOT NULL REFERENCES users(id),
				is_approved INTEGER NOT NULL DEFAULT 0,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"repositories approval index", `
			CREATE INDEX IF NOT EXISTS idx_repositories_is_approved ON repositories(is_approved)`},
		{"repositories owner index", `
			CREATE INDEX IF NOT EXISTS idx_repositories_user_id ON repositories(user_id)`},
		// The composite primary key is what makes "one bookmark per (user, repository)"
		// hold even under concurrent requests.
		{"bookmarks", `
			CREATE TABLE IF NOT EXISTS bookmarks (
				user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, repository_id)
			)`},
		{"bookmarks repository index", `
			CREATE INDEX IF NOT EXISTS idx_bookmarks_repository_id ON bookmarks(repository_id)`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s: %w", step.name, err)
		}
	}
	return nil
}
