package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/lagu/internal/models"
)

// Statuses returns every workflow status.
func (db *DB) Statuses() ([]models.Status, error) {
	rows, err := db.conn.Query(`SELECT id, name, is_closed FROM statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("index: list statuses: %w", err)
	}
	defer rows.Close()
	var out []models.Status
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// StatusByID returns one status, or nil when absent.
func (db *DB) StatusByID(id int64) (*models.Status, error) {
	s, err := scanStatus(db.conn.QueryRow(`SELECT id, name, is_closed FROM statuses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("index: status by id: %w", err)
	}
	return s, nil
}

// StatusByName returns one status, or nil when absent.
func (db *DB) StatusByName(name string) (*models.Status, error) {
	s, err := scanStatus(db.conn.QueryRow(`SELECT id, name, is_closed FROM statuses WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("index: status by name: %w", err)
	}
	return s, nil
}

// CreateStatus adds a workflow status.
func (db *DB) CreateStatus(name string, isClosed bool) (*models.Status, error) {
	res, err := db.conn.Exec(`INSERT INTO statuses (name, is_closed) VALUES (?, ?)`, name, boolToInt(isClosed))
	if err != nil {
		return nil, fmt.Errorf("index: create status: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("index: create status: %w", err)
	}
	return &models.Status{ID: id, Name: name, IsClosed: isClosed}, nil
}

// UpdateStatus renames or reflags a status, reporting whether it existed.
// Item rows that cached the old name are deliberately not rewritten.
func (db *DB) UpdateStatus(id int64, name string, isClosed bool) (bool, error) {
	res, err := db.conn.Exec(`UPDATE statuses SET name = ?, is_closed = ? WHERE id = ?`, name, boolToInt(isClosed), id)
	if err != nil {
		return false, fmt.Errorf("index: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("index: update status: %w", err)
	}
	return n > 0, nil
}

// DeleteStatus removes a status, reporting whether it existed. There is no
// referential check against items; this simplicity is intentional.
func (db *DB) DeleteStatus(id int64) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM statuses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("index: delete status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("index: delete status: %w", err)
	}
	return n > 0, nil
}

func scanStatus(s rowScanner) (*models.Status, error) {
	var st models.Status
	var closed int
	if err := s.Scan(&st.ID, &st.Name, &closed); err != nil {
		return nil, err
	}
	st.IsClosed = closed != 0
	return &st, nil
}
