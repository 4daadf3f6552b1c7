package index

import "github.com/starford/lagu/internal/models"

// SearchResult represents one full-text search hit.
type SearchResult struct {
	Type    string
	ID      string
	Title   string
	Snippet string
}

// ItemIndex defines the secondary-index operations the synchronizer
// depends on. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type ItemIndex interface {
	// Item projection.
	UpsertItem(row ItemRow, body string, related []models.RelatedEdge) error
	DeleteItem(typeName, id string) error
	GetItemRow(typeName, id string) (*ItemRow, error)
	ListItems(typeName string, filter ListFilter) ([]ItemRow, error)
	IDsByType(typeName string) (map[string]struct{}, error)
	Checksums(typeName string) (map[string]string, error)
	RelatedFrom(typeName, id string) ([]models.RelatedEdge, error)
	Search(typeName, query string, limit int) ([]SearchResult, error)

	// Type registry.
	TypeDefinition(name string) (*models.TypeDefinition, error)
	NextSequence(name string) (int64, error)
	RegisterType(name string, kind models.Kind, description string) error
	DeleteType(name string) (bool, error)
	ListTypes() ([]models.TypeDefinition, error)
	CountItems(typeName string) (int, error)

	// Tag registry.
	EnsureTags(names []string) error
	GetOrCreateTagID(name string) (int64, error)
	Tags() ([]models.Tag, error)
	SearchTags(pattern string) ([]models.Tag, error)
	DeleteTag(name string) (bool, error)

	// Status registry.
	Statuses() ([]models.Status, error)
	StatusByID(id int64) (*models.Status, error)
	StatusByName(name string) (*models.Status, error)
	CreateStatus(name string, isClosed bool) (*models.Status, error)
	UpdateStatus(id int64, name string, isClosed bool) (bool, error)
	DeleteStatus(id int64) (bool, error)

	Close() error
}

// Verify *DB satisfies ItemIndex at compile time.
var _ ItemIndex = (*DB)(nil)
