package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/lagu/internal/itemservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, receives item change notifications.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *itemservice.Service, authEnabled bool, token string, events EventPublisher, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Items CRUD.
	r.Get("/items/{type}", h.ListItems)
	r.Post("/items/{type}", h.CreateItem)
	r.Get("/items/{type}/{id}", h.GetItem)
	r.Put("/items/{type}/{id}", h.UpdateItem)
	r.Delete("/items/{type}/{id}", h.DeleteItem)

	// Search.
	r.Get("/search", h.Search)

	// Index rebuild.
	r.Post("/rebuild", h.RebuildIndex)

	// Type registry.
	r.Get("/types", h.ListTypes)
	r.Post("/types", h.CreateType)
	r.Delete("/types/{name}", h.DeleteType)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTags)
	r.Delete("/tags/{name}", h.DeleteTag)

	// Statuses.
	r.Get("/statuses", h.ListStatuses)
	r.Post("/statuses", h.CreateStatus)
	r.Put("/statuses/{id}", h.UpdateStatus)
	r.Delete("/statuses/{id}", h.DeleteStatus)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
