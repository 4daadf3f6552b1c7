package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/itemservice"
	"github.com/starford/lagu/internal/models"
)

// EventPublisher receives item change notifications for fan-out (SSE).
type EventPublisher interface {
	PublishItemEvent(kind, itemType, itemID string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *itemservice.Service
	events EventPublisher // optional
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *itemservice.Service, events EventPublisher) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) notify(kind, typeName, id string) {
	if h.events != nil {
		h.events.PublishItemEvent(kind, typeName, id)
	}
}

// writeErr maps service errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error, logMsg string, attrs ...slog.Attr) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		args := make([]any, 0, len(attrs)+1)
		for _, a := range attrs {
			args = append(args, a)
		}
		args = append(args, slog.String("error", err.Error()))
		slog.Error(logMsg, args...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListItems handles GET /api/items/{type}.
//
//	@Summary		List items of a type with optional filtering
//	@Tags			items
//	@Produce		json
//	@Param			type		path		string	true	"Item type"
//	@Param			status		query		string	false	"Comma-separated status names"
//	@Param			include_closed	query	bool	false	"Include closed-status items"
//	@Param			start_date	query		string	false	"Range start (YYYY-MM-DD)"
//	@Param			end_date	query		string	false	"Range end (YYYY-MM-DD)"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	ItemListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{type} [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	q := r.URL.Query()

	var statuses []string
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}
	includeClosed, _ := strconv.ParseBool(q.Get("include_closed"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, err := h.svc.List(typeName, itemservice.ListOptions{
		Statuses:      statuses,
		IncludeClosed: includeClosed,
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		Tag:           q.Get("tag"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeErr(w, err, "list items failed", slog.String("type", typeName))
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items, Total: len(items)})
}

// GetItem handles GET /api/items/{type}/{id}.
//
//	@Summary		Get a single item with full content
//	@Tags			items
//	@Produce		json
//	@Param			type	path		string	true	"Item type"
//	@Param			id		path		string	true	"Item id"
//	@Success		200		{object}	models.Item
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{type}/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	it, err := h.svc.Get(typeName, id)
	if err != nil {
		writeErr(w, err, "get item failed", slog.String("item", typeName+"-"+id))
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// CreateItem handles POST /api/items/{type}.
//
//	@Summary		Create a new item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string				true	"Item type"
//	@Param			body	body		CreateItemRequest	true	"Item to create"
//	@Success		201		{object}	models.Item
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{type} [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	typeName := chi.URLParam(r, "type")

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	it, err := h.svc.Create(req.params(typeName))
	if err != nil {
		writeErr(w, err, "create item failed", slog.String("type", typeName))
		return
	}
	h.notify("created", it.Type, it.ID)
	writeJSON(w, http.StatusCreated, it)
}

// UpdateItem handles PUT /api/items/{type}/{id}.
//
//	@Summary		Partially update an item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string				true	"Item type"
//	@Param			id		path		string				true	"Item id"
//	@Param			body	body		UpdateItemRequest	true	"Fields to change"
//	@Success		200		{object}	models.Item
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{type}/{id} [put]
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	it, err := h.svc.Update(typeName, id, req.params())
	if err != nil {
		writeErr(w, err, "update item failed", slog.String("item", typeName+"-"+id))
		return
	}
	h.notify("updated", it.Type, it.ID)
	writeJSON(w, http.StatusOK, it)
}

// DeleteItem handles DELETE /api/items/{type}/{id}.
//
//	@Summary		Delete an item
//	@Tags			items
//	@Param			type	path	string	true	"Item type"
//	@Param			id		path	string	true	"Item id"
//	@Success		204		"Item deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{type}/{id} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	ok, err := h.svc.Delete(typeName, id)
	if err != nil {
		writeErr(w, err, "delete item failed", slog.String("item", typeName+"-"+id))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.notify("deleted", typeName, id)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across items
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			type	query		string	false	"Restrict to one item type"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.URL.Query().Get("type"), q, limit)
	if err != nil {
		writeErr(w, err, "search failed", slog.String("query", q))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Type: res.Type, ID: res.ID, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// RebuildIndex handles POST /api/rebuild.
//
//	@Summary		Rebuild the secondary index from item files
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/rebuild [post]
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RebuildAll(); err != nil {
		writeErr(w, err, "rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTypes handles GET /api/types.
//
//	@Summary		List registered custom item types
//	@Tags			types
//	@Produce		json
//	@Success		200	{object}	map[string][]models.TypeDefinition
//	@Security		BearerAuth
//	@Router			/types [get]
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	defs, err := h.svc.ListTypes()
	if err != nil {
		writeErr(w, err, "list types failed")
		return
	}
	if defs == nil {
		defs = []models.TypeDefinition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": defs})
}

// CreateType handles POST /api/types.
//
//	@Summary		Register a custom item type
//	@Tags			types
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTypeRequest	true	"Type to register"
//	@Success		201		{object}	models.TypeDefinition
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/types [post]
func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req CreateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	def, err := h.svc.RegisterType(req.Name, models.Kind(req.BaseKind), req.Description)
	if err != nil {
		writeErr(w, err, "register type failed", slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// DeleteType handles DELETE /api/types/{name}.
//
//	@Summary		Delete a custom item type
//	@Tags			types
//	@Param			name	path	string	true	"Type name"
//	@Success		204		"Type deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/types/{name} [delete]
func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ok, err := h.svc.DeleteCustomType(name)
	if err != nil {
		writeErr(w, err, "delete type failed", slog.String("name", name))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags with usage counts
//	@Tags			tags
//	@Produce		json
//	@Param			q	query		string	false	"Substring filter"
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	var (
		tags []models.Tag
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		tags, err = h.svc.SearchTags(q)
	} else {
		tags, err = h.svc.Tags()
	}
	if err != nil {
		writeErr(w, err, "list tags failed")
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// CreateTags handles POST /api/tags.
//
//	@Summary		Register tags ahead of use
//	@Tags			tags
//	@Accept			json
//	@Success		204	"Tags registered"
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) CreateTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Names) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("names is required"))
		return
	}
	if err := h.svc.CreateTags(req.Names); err != nil {
		writeErr(w, err, "create tags failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTag handles DELETE /api/tags/{name}.
//
//	@Summary		Delete an unused tag
//	@Tags			tags
//	@Param			name	path	string	true	"Tag name"
//	@Success		204		"Tag deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{name} [delete]
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ok, err := h.svc.DeleteTag(name)
	if err != nil {
		writeErr(w, err, "delete tag failed", slog.String("name", name))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStatuses handles GET /api/statuses.
//
//	@Summary		List workflow statuses
//	@Tags			statuses
//	@Produce		json
//	@Success		200	{object}	map[string][]models.Status
//	@Security		BearerAuth
//	@Router			/statuses [get]
func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.svc.Statuses()
	if err != nil {
		writeErr(w, err, "list statuses failed")
		return
	}
	if statuses == nil {
		statuses = []models.Status{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

// CreateStatus handles POST /api/statuses.
//
//	@Summary		Create a workflow status
//	@Tags			statuses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StatusRequest	true	"Status to create"
//	@Success		201		{object}	models.Status
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/statuses [post]
func (h *Handler) CreateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	st, err := h.svc.CreateStatus(req.Name, req.IsClosed)
	if err != nil {
		writeErr(w, err, "create status failed", slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// UpdateStatus handles PUT /api/statuses/{id}.
//
//	@Summary		Rename or reflag a workflow status
//	@Tags			statuses
//	@Accept			json
//	@Param			id		path	int				true	"Status id"
//	@Param			body	body	StatusRequest	true	"New name and flag"
//	@Success		204		"Status updated"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/statuses/{id} [put]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid status id"))
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ok, err := h.svc.UpdateStatus(id, req.Name, req.IsClosed)
	if err != nil {
		writeErr(w, err, "update status failed", slog.Int64("id", id))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteStatus handles DELETE /api/statuses/{id}.
//
//	@Summary		Delete a workflow status
//	@Tags			statuses
//	@Param			id	path	int	true	"Status id"
//	@Success		204	"Status deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/statuses/{id} [delete]
func (h *Handler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid status id"))
		return
	}
	ok, err := h.svc.DeleteStatus(id)
	if err != nil {
		writeErr(w, err, "delete status failed", slog.Int64("id", id))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
