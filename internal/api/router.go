package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mockbox/internal/entityservice"
)

// NewRouter creates a chi router with the entity CRUD routes. notFound, if
// non-nil, answers unmatched paths and methods so the API shares the
// server-wide fallback envelope.
func NewRouter(svc *entityservice.Service, notFound http.HandlerFunc) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	if notFound != nil {
		r.NotFound(notFound)
		r.MethodNotAllowed(notFound)
	}

	r.Get("/{type}", h.ListEntities)
	r.Post("/{type}", h.CreateEntity)
	r.Get("/{type}/{id}", h.GetEntity)
	r.Put("/{type}/{id}", h.UpdateEntity)
	r.Delete("/{type}/{id}", h.DeleteEntity)

	return r
}
