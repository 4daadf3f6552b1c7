// Package itemservice implements the item synchronizer: it assigns
// identifiers, maps typed items onto the generic file format, performs the
// dual write (file first, index projection second), and rebuilds the index
// from the files for recovery.
package itemservice

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/checksum"
	"github.com/starford/lagu/internal/fieldmap"
	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/storage"
)

// Service coordinates the authoritative file store and the derived SQLite
// index. Single-item reads come from files; listing, filtering, and search
// come from the index.
type Service struct {
	store  storage.Provider
	db     index.ItemIndex
	logger *slog.Logger
}

// NewService creates a new item service.
func NewService(store storage.Provider, db index.ItemIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, logger: logger}
}

// CreateParams are the fields accepted when creating an item. Type is
// required; everything else depends on the type's base kind.
type CreateParams struct {
	Type        string
	ID          string // explicit id; overrides derivation for session and daily items
	Title       string
	Description string
	Content     string
	Priority    string
	Status      string
	StartDate   string
	EndDate     string
	Datetime    string // RFC3339 instant for timestamp-keyed ids; defaults to now
	Tags        []string

	Related          []string
	RelatedTasks     []string
	RelatedDocuments []string
}

// UpdateParams are partial-update fields; nil means "leave unchanged".
type UpdateParams struct {
	Title       *string
	Description *string
	Content     *string
	Priority    *string
	Status      *string
	StartDate   *string
	EndDate     *string

	Tags             *[]string
	Related          *[]string
	RelatedTasks     *[]string
	RelatedDocuments *[]string
}

// resolveType resolves a type name to its info: built-ins first, then the
// type registry. Unknown types are an InvalidRequest, not a registry error.
func (s *Service) resolveType(name string) (models.TypeInfo, error) {
	if info, ok := models.BuiltinType(name); ok {
		return info, nil
	}
	def, err := s.db.TypeDefinition(name)
	if err != nil {
		return models.TypeInfo{}, err
	}
	if def == nil {
		return models.TypeInfo{}, fmt.Errorf("unknown type %q: %w", name, apperr.ErrInvalidRequest)
	}
	return models.TypeInfo{Name: def.Name, Kind: def.Kind, Scheme: models.IDSequence}, nil
}

// Create validates, assigns an identifier, writes the authoritative file,
// and projects the item into the index.
func (s *Service) Create(p CreateParams) (*models.Item, error) {
	info, err := s.resolveType(p.Type)
	if err != nil {
		return nil, err
	}

	if info.Kind.RequiresContent() && p.Content == "" {
		return nil, fmt.Errorf("content is required for type %q: %w", p.Type, apperr.ErrInvalidRequest)
	}

	title, err := normalizeTitle(p.Title)
	if err != nil {
		return nil, err
	}
	if err := validateDates(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}

	it := &models.Item{
		Type:        info.Name,
		Title:       title,
		Description: p.Description,
		Content:     p.Content,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Tags:        cleanTags(p.Tags),
		Related:     mergeRelated(p.Related, p.RelatedTasks, p.RelatedDocuments),
	}

	if info.Kind == models.KindTask {
		it.Priority = p.Priority
		if it.Priority == "" {
			it.Priority = models.PriorityMedium
		}
		if !models.ValidPriority(it.Priority) {
			return nil, fmt.Errorf("invalid priority %q: %w", it.Priority, apperr.ErrInvalidRequest)
		}
		st, err := s.resolveStatus(p.Status)
		if err != nil {
			return nil, err
		}
		it.Status = st.Name
		it.StatusID = st.ID
	}

	it.ID, err = s.assignID(info, p)
	if err != nil {
		return nil, err
	}

	if containsRef(it.Related, it.Ref()) {
		return nil, fmt.Errorf("item cannot reference itself (%s): %w", it.Ref(), apperr.ErrInvalidRequest)
	}

	now := time.Now().UTC().Truncate(time.Second)
	it.CreatedAt = now
	it.UpdatedAt = now

	mapper, err := fieldmap.For(info.Kind)
	if err != nil {
		return nil, err
	}
	data, err := mapper.Encode(it)
	if err != nil {
		return nil, err
	}

	cfg := models.FileConfig(info)
	if info.Scheme == models.IDDate {
		// Exclusive create is the duplicate-date signal; at most one
		// daily item per date.
		if err := s.store.SaveNew(cfg, it.ID, data); err != nil {
			if errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("%s item for date %s already exists: %w", info.Name, it.ID, apperr.ErrAlreadyExists)
			}
			return nil, err
		}
	} else if err := s.store.Save(cfg, it.ID, data); err != nil {
		return nil, err
	}

	if err := s.project(it, data); err != nil {
		// The file write succeeded; the index can be recovered with
		// Rebuild.
		return nil, fmt.Errorf("index projection for %s failed (run rebuild): %v: %w", it.Ref(), err, apperr.ErrInternal)
	}

	// Tag registration is a best-effort side effect of the item write.
	if err := s.db.EnsureTags(it.Tags); err != nil {
		s.logger.Warn("tag registration failed",
			slog.String("item", it.Ref()),
			slog.String("error", err.Error()))
	}

	s.splitRelatedViews(it)
	return it, nil
}

// Get reads a single item from the authoritative file store and re-resolves
// its status name from the status registry.
func (s *Service) Get(typeName, id string) (*models.Item, error) {
	info, err := s.resolveType(typeName)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Load(models.FileConfig(info), id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s %s: %w", typeName, id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return s.decodeItem(info, id, data)
}

// Update applies partial fields over the current file contents, re-runs the
// create validations on the merged result, and rewrites file and index.
func (s *Service) Update(typeName, id string, p UpdateParams) (*models.Item, error) {
	info, err := s.resolveType(typeName)
	if err != nil {
		return nil, err
	}
	cur, err := s.Get(typeName, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		if cur.Title, err = normalizeTitle(*p.Title); err != nil {
			return nil, err
		}
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.Content != nil {
		if info.Kind.RequiresContent() && *p.Content == "" {
			return nil, fmt.Errorf("content is required for type %q: %w", typeName, apperr.ErrInvalidRequest)
		}
		cur.Content = *p.Content
	}
	if p.StartDate != nil {
		cur.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		cur.EndDate = *p.EndDate
	}
	if err := validateDates(cur.StartDate, cur.EndDate); err != nil {
		return nil, err
	}

	if info.Kind == models.KindTask {
		if p.Priority != nil {
			if !models.ValidPriority(*p.Priority) {
				return nil, fmt.Errorf("invalid priority %q: %w", *p.Priority, apperr.ErrInvalidRequest)
			}
			cur.Priority = *p.Priority
		}
		if p.Status != nil {
			st, err := s.resolveStatus(*p.Status)
			if err != nil {
				return nil, err
			}
			cur.Status = st.Name
			cur.StatusID = st.ID
		}
	}

	if p.Tags != nil {
		cur.Tags = cleanTags(*p.Tags)
	}

	// Related is recomputed as the union of its constituent sub-lists,
	// each applied over the current views when not supplied.
	rel := pick(p.Related, cur.Related)
	rt := pick(p.RelatedTasks, cur.RelatedTasks)
	rd := pick(p.RelatedDocuments, cur.RelatedDocuments)
	cur.Related = mergeRelated(rel, rt, rd)
	if containsRef(cur.Related, cur.Ref()) {
		return nil, fmt.Errorf("item cannot reference itself (%s): %w", cur.Ref(), apperr.ErrInvalidRequest)
	}

	cur.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	mapper, err := fieldmap.For(info.Kind)
	if err != nil {
		return nil, err
	}
	data, err := mapper.Encode(cur)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(models.FileConfig(info), id, data); err != nil {
		return nil, err
	}
	if err := s.project(cur, data); err != nil {
		return nil, fmt.Errorf("index projection for %s failed (run rebuild): %v: %w", cur.Ref(), err, apperr.ErrInternal)
	}
	if err := s.db.EnsureTags(cur.Tags); err != nil {
		s.logger.Warn("tag registration failed",
			slog.String("item", cur.Ref()),
			slog.String("error", err.Error()))
	}

	s.splitRelatedViews(cur)
	return cur, nil
}

// Delete removes the file and, if it existed, the index row with its
// full-text shadow and tag/relation edges. Items referencing the deleted
// item keep their (now dangling) references.
func (s *Service) Delete(typeName, id string) (bool, error) {
	info, err := s.resolveType(typeName)
	if err != nil {
		return false, err
	}
	deleted, err := s.store.Delete(models.FileConfig(info), id)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	if err := s.db.DeleteItem(typeName, id); err != nil {
		return true, fmt.Errorf("index cleanup for %s-%s failed (run rebuild): %v: %w", typeName, id, err, apperr.ErrInternal)
	}
	return true, nil
}

// ListOptions narrow a listing. Rows whose cached status is closed are
// excluded unless IncludeClosed is set or Statuses names them explicitly.
type ListOptions struct {
	Statuses      []string
	IncludeClosed bool
	StartDate     string
	EndDate       string
	Tag           string
	Limit         int
	Offset        int
}

// List returns item summaries for a type from the secondary index. The
// date range uses the item's own date for date-keyed types and updated_at
// for everything else. Summaries carry no content body.
func (s *Service) List(typeName string, opts ListOptions) ([]models.Item, error) {
	info, err := s.resolveType(typeName)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.ListItems(typeName, index.ListFilter{
		Statuses:      opts.Statuses,
		IncludeClosed: opts.IncludeClosed,
		StartDate:     opts.StartDate,
		EndDate:       opts.EndDate,
		UseIDDate:     info.Scheme == models.IDDate,
		Tag:           opts.Tag,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, len(rows))
	for i, r := range rows {
		items[i] = models.Item{
			Type:        r.Type,
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Priority:    r.Priority,
			Status:      r.Status,
			StatusID:    r.StatusID,
			StartDate:   r.StartDate,
			EndDate:     r.EndDate,
			Tags:        nonNilSlice(r.Tags),
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items, nil
}

// Search delegates full-text search to the index. typeName may be empty to
// search across all types.
func (s *Service) Search(typeName, query string, limit int) ([]index.SearchResult, error) {
	if typeName != "" {
		if _, err := s.resolveType(typeName); err != nil {
			return nil, err
		}
	}
	return s.db.Search(typeName, query, limit)
}

// assignID mints an identifier according to the type's id scheme.
func (s *Service) assignID(info models.TypeInfo, p CreateParams) (string, error) {
	switch info.Scheme {
	case models.IDTimestamp:
		if p.ID != "" {
			if err := validateSessionID(p.ID); err != nil {
				return "", err
			}
			return p.ID, nil
		}
		instant := time.Now()
		if p.Datetime != "" {
			t, err := time.Parse(time.RFC3339, p.Datetime)
			if err != nil {
				return "", fmt.Errorf("invalid datetime %q: %w", p.Datetime, apperr.ErrInvalidRequest)
			}
			instant = t
		}
		return instant.Format("2006-01-02-15.04.05.000"), nil

	case models.IDDate:
		id := p.ID
		if id == "" {
			id = time.Now().Format("2006-01-02")
		}
		if err := validateDate(id); err != nil {
			return "", err
		}
		return id, nil

	default:
		seq, err := s.db.NextSequence(info.Name)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(seq, 10), nil
	}
}

// resolveStatus resolves a status name (default "Open") against the status
// registry.
func (s *Service) resolveStatus(name string) (*models.Status, error) {
	if name == "" {
		name = "Open"
	}
	st, err := s.db.StatusByName(name)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("unknown status %q: %w", name, apperr.ErrInvalidRequest)
	}
	return st, nil
}

// project writes the item's derived representation: items row, full-text
// shadow, tag edges, and relation edges. data is the encoded file content;
// its checksum is stored so rebuild and the watcher can skip unchanged
// files.
func (s *Service) project(it *models.Item, data []byte) error {
	edges := make([]models.RelatedEdge, 0, len(it.Related))
	for _, ref := range it.Related {
		tn, tid, ok := models.ParseRef(ref)
		if !ok {
			continue
		}
		edges = append(edges, models.RelatedEdge{
			SourceType: it.Type, SourceID: it.ID,
			TargetType: tn, TargetID: tid,
		})
	}
	return s.db.UpsertItem(index.ItemRow{
		Type:        it.Type,
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		Priority:    it.Priority,
		StatusID:    it.StatusID,
		Status:      it.Status,
		StartDate:   it.StartDate,
		EndDate:     it.EndDate,
		Checksum:    checksum.Sum(data),
		Tags:        it.Tags,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}, it.Content, edges)
}

// decodeItem converts file data back to the domain model, re-resolving the
// status name from status_id via the status registry.
func (s *Service) decodeItem(info models.TypeInfo, id string, data []byte) (*models.Item, error) {
	mapper, err := fieldmap.For(info.Kind)
	if err != nil {
		return nil, err
	}
	it, err := mapper.Decode(data, info.Name, id)
	if err != nil {
		return nil, err
	}
	if info.Kind == models.KindTask && it.StatusID != 0 {
		st, err := s.db.StatusByID(it.StatusID)
		if err != nil {
			return nil, err
		}
		if st != nil {
			it.Status = st.Name
		}
	}
	it.Tags = nonNilSlice(it.Tags)
	it.Related = nonNilSlice(it.Related)
	s.splitRelatedViews(it)
	return it, nil
}

// splitRelatedViews derives the legacy-compatible related_tasks and
// related_documents views from the full related set by the referenced
// type's base kind. References to unknown types stay in Related only.
func (s *Service) splitRelatedViews(it *models.Item) {
	it.RelatedTasks = []string{}
	it.RelatedDocuments = []string{}
	for _, ref := range it.Related {
		tn, _, ok := models.ParseRef(ref)
		if !ok {
			continue
		}
		info, err := s.resolveType(tn)
		if err != nil {
			continue
		}
		switch info.Kind {
		case models.KindTask:
			it.RelatedTasks = append(it.RelatedTasks, ref)
		case models.KindDocument:
			it.RelatedDocuments = append(it.RelatedDocuments, ref)
		}
	}
}

func pick(p *[]string, cur []string) []string {
	if p != nil {
		return *p
	}
	return cur
}

func containsRef(refs []string, ref string) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
