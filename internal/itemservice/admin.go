package itemservice

import (
	"fmt"
	"regexp"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/models"
)

// Type names must be dash-free so "type-id" references split unambiguously
// at the first dash.
var typeNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// RegisterType creates a custom item type backed by the type registry.
// Custom types mint sequential numeric ids like the generic built-ins.
func (s *Service) RegisterType(name string, kind models.Kind, description string) (*models.TypeDefinition, error) {
	if !typeNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid type name %q: %w", name, apperr.ErrInvalidRequest)
	}
	if _, builtin := models.BuiltinType(name); builtin {
		return nil, fmt.Errorf("type %q is built-in: %w", name, apperr.ErrAlreadyExists)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid base kind %q: %w", kind, apperr.ErrInvalidRequest)
	}
	if err := s.db.RegisterType(name, kind, description); err != nil {
		return nil, err
	}
	return &models.TypeDefinition{Name: name, Kind: kind, Description: description}, nil
}

// DeleteCustomType removes a custom type. Deletion is refused while items
// of the type remain, and built-ins cannot be deleted.
func (s *Service) DeleteCustomType(name string) (bool, error) {
	if _, builtin := models.BuiltinType(name); builtin {
		return false, fmt.Errorf("type %q is built-in: %w", name, apperr.ErrInvalidRequest)
	}
	n, err := s.db.CountItems(name)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, fmt.Errorf("type %q still has %d item(s): %w", name, n, apperr.ErrConflict)
	}
	return s.db.DeleteType(name)
}

// ListTypes returns every registered type definition.
func (s *Service) ListTypes() ([]models.TypeDefinition, error) {
	return s.db.ListTypes()
}

// Tags returns every registered tag with its usage count.
func (s *Service) Tags() ([]models.Tag, error) {
	return s.db.Tags()
}

// SearchTags returns tags whose name contains the pattern.
func (s *Service) SearchTags(pattern string) ([]models.Tag, error) {
	return s.db.SearchTags(pattern)
}

// CreateTags registers tags explicitly, ahead of any item referencing them.
func (s *Service) CreateTags(names []string) error {
	return s.db.EnsureTags(cleanTags(names))
}

// DeleteTag removes a tag. It fails with ErrConflict while any item still
// carries the tag.
func (s *Service) DeleteTag(name string) (bool, error) {
	return s.db.DeleteTag(name)
}

// Statuses returns every workflow status.
func (s *Service) Statuses() ([]models.Status, error) {
	return s.db.Statuses()
}

// CreateStatus adds a workflow status.
func (s *Service) CreateStatus(name string, isClosed bool) (*models.Status, error) {
	if name == "" {
		return nil, fmt.Errorf("status name must not be empty: %w", apperr.ErrInvalidRequest)
	}
	return s.db.CreateStatus(name, isClosed)
}

// UpdateStatus renames or reflags a status. Items that cached the old name
// keep it; historical records are not rewritten.
func (s *Service) UpdateStatus(id int64, name string, isClosed bool) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("status name must not be empty: %w", apperr.ErrInvalidRequest)
	}
	return s.db.UpdateStatus(id, name, isClosed)
}

// DeleteStatus removes a status. Items referencing it are not checked.
func (s *Service) DeleteStatus(id int64) (bool, error) {
	return s.db.DeleteStatus(id)
}

// Index exposes the underlying index for collaborators that project
// directly (the file watcher).
func (s *Service) Index() index.ItemIndex {
	return s.db
}
