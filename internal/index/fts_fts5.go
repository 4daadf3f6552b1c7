//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			type UNINDEXED,
			id UNINDEXED,
			title,
			description,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, typeName, id, title, description, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE type = ? AND id = ?`, typeName, id)
	_, err := tx.Exec(`INSERT INTO items_fts (type, id, title, description, body, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		typeName, id, title, description, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, typeName, id string) {
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE type = ? AND id = ?`, typeName, id)
}

// Search performs an FTS5 full-text search, optionally restricted to one
// type, and returns matches with snippets.
func (db *DB) Search(typeName, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT type,
		       id,
		       title,
		       snippet(items_fts, 4, '<b>', '</b>', '...', 64)
		FROM items_fts
		WHERE items_fts MATCH ? AND (? = '' OR type = ?)
		ORDER BY rank
		LIMIT ?
	`, query, typeName, typeName, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
