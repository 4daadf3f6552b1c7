// Package index provides the SQLite secondary index: one row per item for
// listing and filtering, a full-text shadow (FTS5 when compiled in), tag
// membership, relation edges, and the type/tag/status registries. The index
// is always derived from the item files and can be rebuilt from them.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/lagu/internal/models"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	type        TEXT NOT NULL,
	id          TEXT NOT NULL,
	title       TEXT NOT NULL CHECK(length(title) <= 500),
	description TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT '',
	status_id   INTEGER,
	status      TEXT NOT NULL DEFAULT '',
	start_date  TEXT NOT NULL DEFAULT '',
	end_date    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	PRIMARY KEY (type, id)
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_updated ON items(updated_at);

CREATE TABLE IF NOT EXISTS statuses (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL UNIQUE,
	is_closed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS item_tags (
	item_type TEXT NOT NULL,
	item_id   TEXT NOT NULL,
	tag_id    INTEGER NOT NULL REFERENCES tags(id),
	PRIMARY KEY (item_type, item_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag_id);

CREATE TABLE IF NOT EXISTS related_items (
	source_type TEXT NOT NULL,
	source_id   TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	PRIMARY KEY (source_type, source_id, target_type, target_id)
);

CREATE INDEX IF NOT EXISTS idx_related_target ON related_items(target_type, target_id);

CREATE TABLE IF NOT EXISTS item_types (
	name        TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	seq         INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT ''
);
`

// defaultStatuses are seeded once into an empty database.
var defaultStatuses = []struct {
	name   string
	closed bool
}{
	{"Open", false},
	{"In Progress", false},
	{"Done", true},
	{"Closed", true},
}

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database, applies the schema, and
// seeds the built-in sequence types and default statuses.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	if err := seed(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: seed: %w", err)
	}
	return &DB{conn: conn, path: dsn}, nil
}

// Path returns the database file path the DB was opened with.
func (db *DB) Path() string {
	return db.path
}

func seed(conn *sql.DB) error {
	for _, s := range defaultStatuses {
		if _, err := conn.Exec(`INSERT OR IGNORE INTO statuses (name, is_closed) VALUES (?, ?)`, s.name, boolToInt(s.closed)); err != nil {
			return err
		}
	}
	for _, info := range models.SequenceBuiltins() {
		if _, err := conn.Exec(`INSERT OR IGNORE INTO item_types (name, kind) VALUES (?, ?)`, info.Name, string(info.Kind)); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
