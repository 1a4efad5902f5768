// Package sqlite implements campus.ConversationStore and a local
// campus.IdentityProvider on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB is a SQLite database holding users, sessions, conversations and
// messages.
type DB struct {
	db *sql.DB

	// Now returns the current time. Timestamps issued by the database are
	// strictly increasing even when Now is not.
	Now func() time.Time

	mu   sync.Mutex
	last int64
}

// Open opens the database at path, creating it and its schema if needed.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{db: db, Now: time.Now}
	if err := d.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		uid           TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash BLOB NOT NULL,
		created_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		uid        TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (uid) REFERENCES users(uid) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		title      TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	-- No foreign key: messages outlive a deleted conversation.
	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT NOT NULL,
		created_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// timestamp returns the current time in unix nanoseconds, greater than any
// value it returned before.
func (d *DB) timestamp() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.Now().UnixNano()
	if t <= d.last {
		t = d.last + 1
	}
	d.last = t
	return t
}
