//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; full-text search falls back to LIKE over the
	// body column kept on the items table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _, _ string, _ []string) error {
	// Body is already stored in the items table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(typeName, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT type, id, title, substr(body, 1, 200)
		FROM items
		WHERE (? = '' OR type = ?)
		  AND (title LIKE ? OR description LIKE ? OR body LIKE ?)
		ORDER BY updated_at DESC
		LIMIT ?
	`, typeName, typeName, like, like, like, limit)
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
