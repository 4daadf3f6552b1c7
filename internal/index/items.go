package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/starford/lagu/internal/models"
)

// ItemRow is the projection of one item into the items table. Tags are
// stored through the item_tags join table, relations through related_items.
type ItemRow struct {
	Type        string
	ID          string
	Title       string
	Description string
	Priority    string
	StatusID    int64
	Status      string
	StartDate   string
	EndDate     string
	Checksum    string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter narrows a type listing.
type ListFilter struct {
	// Statuses is an explicit set of status names to include. When empty,
	// all statuses pass except closed ones unless IncludeClosed is set.
	Statuses      []string
	IncludeClosed bool
	// StartDate/EndDate bound the item's date: the id itself for
	// date-keyed types (UseIDDate), updated_at otherwise.
	StartDate string
	EndDate   string
	UseIDDate bool
	Tag       string
	Limit     int
	Offset    int
}

// UpsertItem replaces an item's projection in a single transaction: the
// items row, its full-text shadow, and a full replace of its tag and
// relation edges. Tag rows are created on demand so the usage counts
// derived from item_tags are never observable out of step with the edges.
func (db *DB) UpsertItem(row ItemRow, body string, related []models.RelatedEdge) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO items (type, id, title, description, body, checksum, priority, status_id, status, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(type, id) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			body        = excluded.body,
			checksum    = excluded.checksum,
			priority    = excluded.priority,
			status_id   = excluded.status_id,
			status      = excluded.status,
			start_date  = excluded.start_date,
			end_date    = excluded.end_date,
			created_at  = excluded.created_at,
			updated_at  = excluded.updated_at
	`, row.Type, row.ID, row.Title, row.Description, body, row.Checksum, row.Priority,
		nullableID(row.StatusID), row.Status, row.StartDate, row.EndDate,
		row.CreatedAt.UTC(), row.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert item: %w", err)
	}

	if err := ftsUpsert(tx, row.Type, row.ID, row.Title, row.Description, body, row.Tags); err != nil {
		return err
	}

	// Replace tag edges: delete old, then insert against tag rows created
	// on demand.
	if _, err := tx.Exec(`DELETE FROM item_tags WHERE item_type = ? AND item_id = ?`, row.Type, row.ID); err != nil {
		return fmt.Errorf("index: clear tag edges: %w", err)
	}
	for _, tag := range row.Tags {
		tagID, err := getOrCreateTagIDTx(tx, tag)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO item_tags (item_type, item_id, tag_id) VALUES (?, ?, ?)`,
			row.Type, row.ID, tagID); err != nil {
			return fmt.Errorf("index: insert tag edge: %w", err)
		}
	}

	// Replace relation edges.
	if _, err := tx.Exec(`DELETE FROM related_items WHERE source_type = ? AND source_id = ?`, row.Type, row.ID); err != nil {
		return fmt.Errorf("index: clear relation edges: %w", err)
	}
	for _, edge := range related {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO related_items (source_type, source_id, target_type, target_id) VALUES (?, ?, ?, ?)`,
			edge.SourceType, edge.SourceID, edge.TargetType, edge.TargetID); err != nil {
			return fmt.Errorf("index: insert relation edge: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteItem removes an item's row, full-text shadow, tag edges, and
// outgoing relation edges. Inbound relation edges from other items are left
// in place; dangling references are tolerated.
func (db *DB) DeleteItem(typeName, id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, typeName, id)
	_, _ = tx.Exec(`DELETE FROM item_tags WHERE item_type = ? AND item_id = ?`, typeName, id)
	_, _ = tx.Exec(`DELETE FROM related_items WHERE source_type = ? AND source_id = ?`, typeName, id)
	_, _ = tx.Exec(`DELETE FROM items WHERE type = ? AND id = ?`, typeName, id)

	return tx.Commit()
}

// GetItemRow returns one projected row, or nil when absent.
func (db *DB) GetItemRow(typeName, id string) (*ItemRow, error) {
	row := db.conn.QueryRow(`
		SELECT type, id, title, description, priority, COALESCE(status_id, 0), status, start_date, end_date, created_at, updated_at
		FROM items WHERE type = ? AND id = ?
	`, typeName, id)
	r, err := scanItemRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("index: get item: %w", err)
	}
	tags, err := db.tagsFor(typeName, []string{id})
	if err != nil {
		return nil, err
	}
	r.Tags = tags[id]
	return r, nil
}

// ListItems returns summary rows for a type, newest first.
func (db *DB) ListItems(typeName string, filter ListFilter) ([]ItemRow, error) {
	var (
		conds []string
		args  []any
	)
	conds = append(conds, "i.type = ?")
	args = append(args, typeName)

	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Statuses)), ",")
		conds = append(conds, "i.status IN ("+placeholders+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	} else if !filter.IncludeClosed {
		conds = append(conds, "COALESCE(s.is_closed, 0) = 0")
	}

	dateExpr := "date(i.updated_at)"
	if filter.UseIDDate {
		dateExpr = "i.id"
	}
	if filter.StartDate != "" {
		conds = append(conds, dateExpr+" >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		conds = append(conds, dateExpr+" <= ?")
		args = append(args, filter.EndDate)
	}

	if filter.Tag != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM item_tags it JOIN tags t ON t.id = it.tag_id
			WHERE it.item_type = i.type AND it.item_id = i.id AND t.name = ?)`)
		args = append(args, filter.Tag)
	}

	query := `
		SELECT i.type, i.id, i.title, i.description, i.priority, COALESCE(i.status_id, 0), i.status, i.start_date, i.end_date, i.created_at, i.updated_at
		FROM items i
		LEFT JOIN statuses s ON s.id = i.status_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY i.updated_at DESC, i.id DESC`
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list items: %w", err)
	}
	defer rows.Close()

	var out []ItemRow
	var ids []string
	for rows.Next() {
		r, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tagsByID, err := db.tagsFor(typeName, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Tags = tagsByID[out[i].ID]
	}
	return out, nil
}

// IDsByType returns every indexed id for a type, used by rebuild and the
// watcher's reconciliation pass.
func (db *DB) IDsByType(typeName string) (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM items WHERE type = ?`, typeName)
	if err != nil {
		return nil, fmt.Errorf("index: ids by type: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// Checksums returns the stored file checksum per id for a type, letting
// rebuild and the watcher skip files that have not changed.
func (db *DB) Checksums(typeName string) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM items WHERE type = ?`, typeName)
	if err != nil {
		return nil, fmt.Errorf("index: checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// RelatedFrom returns the outgoing relation edges of an item.
func (db *DB) RelatedFrom(typeName, id string) ([]models.RelatedEdge, error) {
	rows, err := db.conn.Query(`
		SELECT source_type, source_id, target_type, target_id
		FROM related_items WHERE source_type = ? AND source_id = ?
	`, typeName, id)
	if err != nil {
		return nil, fmt.Errorf("index: related from: %w", err)
	}
	defer rows.Close()
	var out []models.RelatedEdge
	for rows.Next() {
		var e models.RelatedEdge
		if err := rows.Scan(&e.SourceType, &e.SourceID, &e.TargetType, &e.TargetID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// tagsFor returns the tag names per item id for one type.
func (db *DB) tagsFor(typeName string, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, typeName)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := db.conn.Query(`
		SELECT it.item_id, t.name
		FROM item_tags it JOIN tags t ON t.id = it.tag_id
		WHERE it.item_type = ? AND it.item_id IN (`+placeholders+`)
		ORDER BY t.name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: tags for items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItemRow(s rowScanner) (*ItemRow, error) {
	var r ItemRow
	if err := s.Scan(&r.Type, &r.ID, &r.Title, &r.Description, &r.Priority,
		&r.StatusID, &r.Status, &r.StartDate, &r.EndDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
