// Package sqlite implements the repository interfaces on SQLite, used as
// a document store rather than a relational one.
//
// STORAGE LAYOUT:
// Each collection is a table of (key, doc) where doc is the record's JSON
// document. The only extra columns are the single equality-predicate keys
// the store is allowed to offer (questions.receiver_id, answers.user_id).
// Everything else — the answered flag, like counters, device tokens —
// lives inside the JSON and is read with json_extract and mutated with
// json_set in single statements. A single UPDATE of one row is SQLite's
// atomic unit, which is exactly the "atomic single-document write" the
// services rely on.
//
// WHY modernc.org/sqlite?
// Pure-Go translation of SQLite — no CGo, no C compiler, trivial
// cross-compilation, and ":memory:" databases make repository tests fast
// and fully isolated.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces for all collections.
//
// orderedFeed gates the store's one optional capability: the ordered
// global-feed query. It is off when the deployment has not provisioned the
// ordering index; the answers repository then reports
// repository.ErrOrderedUnsupported and callers degrade to their
// bounded-scan fallback.
type DB struct {
	conn        *sql.DB
	orderedFeed bool
}

// Option configures a DB at construction time.
type Option func(*DB)

// WithOrderedFeed enables or disables the ordered global-feed capability.
func WithOrderedFeed(enabled bool) Option {
	return func(db *DB) { db.orderedFeed = enabled }
}

// New opens the database, applies pragmas, and runs migrations.
//
// dbPath examples:
//   - "data/askwall.db" → file-based, persistent
//   - ":memory:"        → in-memory, lost on close (used by tests)
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path or permissions problem
	// surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in flight —
	// required for a web server with many parallel sessions.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn, orderedFeed: true}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New().
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the collection tables.
//
// Note what is deliberately ABSENT: no unique constraint on
// answers.question_id (the one-answer-per-question invariant is enforced
// by the publication protocol, not the schema), no composite indexes, no
// foreign keys. The schema mirrors the minimal document-store contract the
// repositories are written against.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			uid TEXT PRIMARY KEY,
			doc TEXT NOT NULL
		);

		-- The username index collection: one row per claimed normalized
		-- name. The PRIMARY KEY is what makes ClaimUsername a conditional
		-- insert — the store-level uniqueness primitive.
		CREATE TABLE IF NOT EXISTS usernames (
			name TEXT PRIMARY KEY,
			uid  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS questions (
			id          TEXT PRIMARY KEY,
			receiver_id TEXT NOT NULL,
			doc         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_questions_receiver ON questions(receiver_id);

		CREATE TABLE IF NOT EXISTS answers (
			id      TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			doc     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_answers_user ON answers(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating collection tables: %w", err)
	}
	return nil
}
