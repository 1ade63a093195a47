// Package sqlite implements repository.TokenRepository on an embedded SQLite
// file, for deployments that want the Spotify session to survive restarts
// without running a separate database server.
//
// DRIVER:
// modernc.org/sqlite is a pure Go port of SQLite, so the binary still builds
// with CGO_ENABLED=0 and cross-compiles for the container image.
//
// Paths:
//   - "data/portfolio.db"  → file on disk, survives restarts
//   - ":memory:"           → private in-memory database, used by tests
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB owns the connection pool. Close it on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// Each ":memory:" connection is its own empty database, and PRAGMAs only
	// apply to the connection they run on. The token table sees a handful of
	// writes per hour, so a single pooled connection keeps both cases correct.
	conn.SetMaxOpenConns(1)

	// sql.Open is lazy; Ping surfaces a bad path or permissions now rather
	// than on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		// Wait instead of failing immediately if another process holds the
		// lock (a backup job reading the file, say).
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every boot.
func (db *DB) migrate() error {
	// session_key is UNIQUE: one token record per session.
	// expires_at is unix milliseconds so comparisons never depend on
	// driver-specific DATETIME parsing.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS spotify_tokens (
			id            TEXT PRIMARY KEY,
			session_key   TEXT NOT NULL UNIQUE,
			access_token  TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at    INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating spotify_tokens table: %w", err)
	}
	return nil
}
