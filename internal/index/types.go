package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/models"
)

// TypeDefinition returns the registry row for a type, or nil when the type
// is not registered. The timestamp- and date-keyed built-ins are not rows;
// callers resolve those through models.BuiltinType first.
func (db *DB) TypeDefinition(name string) (*models.TypeDefinition, error) {
	var def models.TypeDefinition
	var kind string
	err := db.conn.QueryRow(`SELECT name, kind, seq, description FROM item_types WHERE name = ?`, name).
		Scan(&def.Name, &kind, &def.Seq, &def.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("index: type definition: %w", err)
	}
	def.Kind = models.Kind(kind)
	return &def, nil
}

// NextSequence atomically increments and returns a type's sequence counter
// in a single statement, so concurrent creates never observe the same
// value. Requesting a sequence for an unregistered type is a caller error.
func (db *DB) NextSequence(name string) (int64, error) {
	var seq int64
	err := db.conn.QueryRow(`UPDATE item_types SET seq = seq + 1 WHERE name = ? RETURNING seq`, name).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("index: sequence for unregistered type %q: %w", name, apperr.ErrNotFound)
		}
		return 0, fmt.Errorf("index: next sequence: %w", err)
	}
	return seq, nil
}

// RegisterType creates a custom type row.
func (db *DB) RegisterType(name string, kind models.Kind, description string) error {
	res, err := db.conn.Exec(`INSERT OR IGNORE INTO item_types (name, kind, description) VALUES (?, ?, ?)`,
		name, string(kind), description)
	if err != nil {
		return fmt.Errorf("index: register type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("index: register type: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("type %q: %w", name, apperr.ErrAlreadyExists)
	}
	return nil
}

// DeleteType removes a type row, reporting whether it existed. Callers are
// responsible for refusing deletion while items of the type remain.
func (db *DB) DeleteType(name string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM item_types WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("index: delete type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("index: delete type: %w", err)
	}
	return n > 0, nil
}

// ListTypes returns every registered custom type. The built-ins also hold
// rows (for their sequence counters) but are not registry entries.
func (db *DB) ListTypes() ([]models.TypeDefinition, error) {
	builtins := models.SequenceBuiltins()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(builtins)), ",")
	args := make([]any, len(builtins))
	for i, info := range builtins {
		args[i] = info.Name
	}
	rows, err := db.conn.Query(`SELECT name, kind, seq, description FROM item_types
		WHERE name NOT IN (`+placeholders+`) ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list types: %w", err)
	}
	defer rows.Close()
	var out []models.TypeDefinition
	for rows.Next() {
		var def models.TypeDefinition
		var kind string
		if err := rows.Scan(&def.Name, &kind, &def.Seq, &def.Description); err != nil {
			return nil, err
		}
		def.Kind = models.Kind(kind)
		out = append(out, def)
	}
	return out, rows.Err()
}

// CountItems returns the number of indexed items of a type.
func (db *DB) CountItems(typeName string) (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM items WHERE type = ?`, typeName).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count items: %w", err)
	}
	return n, nil
}
