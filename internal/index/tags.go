package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/models"
)

// EnsureTags upserts tag rows for every name. Idempotent; used for
// best-effort registration after an item write and for explicit creation.
func (db *DB) EnsureTags(names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := db.conn.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("index: ensure tag %q: %w", name, err)
		}
	}
	return nil
}

// GetOrCreateTagID returns the id for a tag name, creating the row if
// needed.
func (db *DB) GetOrCreateTagID(name string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	id, err := getOrCreateTagIDTx(tx, name)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func getOrCreateTagIDTx(tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("index: ensure tag %q: %w", name, err)
	}
	var id int64
	if err := tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("index: tag id %q: %w", name, err)
	}
	return id, nil
}

// Tags returns every tag with its usage count derived from item_tags.
func (db *DB) Tags() ([]models.Tag, error) {
	return db.queryTags(``, nil)
}

// SearchTags returns tags whose name contains the pattern.
func (db *DB) SearchTags(pattern string) ([]models.Tag, error) {
	return db.queryTags(`WHERE t.name LIKE ?`, []any{"%" + pattern + "%"})
}

func (db *DB) queryTags(where string, args []any) ([]models.Tag, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.name, count(it.tag_id)
		FROM tags t
		LEFT JOIN item_tags it ON it.tag_id = t.id
		`+where+`
		GROUP BY t.id, t.name
		ORDER BY t.name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query tags: %w", err)
	}
	defer rows.Close()
	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.UsageCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag row, reporting whether it existed. Deletion is
// refused with ErrConflict while any item-tag edge still references the
// tag; callers retire the edges (by deleting or updating the items) first.
func (db *DB) DeleteTag(name string) (bool, error) {
	var id int64
	err := db.conn.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("index: tag lookup: %w", err)
	}

	var used int
	if err := db.conn.QueryRow(`SELECT count(*) FROM item_tags WHERE tag_id = ?`, id).Scan(&used); err != nil {
		return false, fmt.Errorf("index: tag usage: %w", err)
	}
	if used > 0 {
		return false, fmt.Errorf("tag %q referenced by %d item(s): %w", name, used, apperr.ErrConflict)
	}

	if _, err := db.conn.Exec(`DELETE FROM tags WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("index: delete tag: %w", err)
	}
	return true, nil
}
