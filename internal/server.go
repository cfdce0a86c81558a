package internal

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/starford/mockbox/internal/api"
	"github.com/starford/mockbox/internal/docs"
	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/graphql"
	"github.com/starford/mockbox/internal/health"
	"github.com/starford/mockbox/internal/journal"
)

// routerDeps are the components the HTTP surface is built from. Journal may
// be nil.
type routerDeps struct {
	Service        *entityservice.Service
	Health         *health.Checker
	Events         http.Handler
	Journal        *journal.DB
	AllowedOrigins []string
}

type endpointMap struct {
	Health  string `json:"health"`
	RestAPI string `json:"restApi"`
	GraphQL string `json:"graphql"`
	Docs    string `json:"docs"`
	Events  string `json:"events"`
	Journal string `json:"journal,omitempty"`
}

type rootResponse struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Description   string            `json:"description"`
	Endpoints     endpointMap       `json:"endpoints"`
	Documentation map[string]string `json:"documentation"`
}

type notFoundResponse struct {
	Error              string      `json:"error"`
	Message            string      `json:"message"`
	AvailableEndpoints endpointMap `json:"availableEndpoints"`
}

func endpoints(withJournal bool) endpointMap {
	m := endpointMap{
		Health:  "/health",
		RestAPI: "/api/:entity",
		GraphQL: "/graphql",
		Docs:    "/docs",
		Events:  "/events",
	}
	if withJournal {
		m.Journal = "/journal"
	}
	return m
}

// newRouter builds the full HTTP surface.
func newRouter(d routerDeps) (http.Handler, error) {
	schema, err := graphql.NewSchema(d.Service, d.Health)
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	eps := endpoints(d.Journal != nil)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusNotFound, notFoundResponse{
			Error:              "Not Found",
			Message:            fmt.Sprintf("Route %s not found", r.URL.RequestURI()),
			AvailableEndpoints: eps,
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(api.SecurityHeaders)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		base := docs.BaseURL(req)
		api.WriteJSON(w, http.StatusOK, rootResponse{
			Name:        "mockbox",
			Version:     health.Version,
			Description: "A generic CRUD API for mocking any entity",
			Endpoints:   eps,
			Documentation: map[string]string{
				"swagger": base + "/docs",
				"graphql": base + "/graphql",
			},
		})
	})

	r.Get("/health", d.Health.Handle)
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	r.Mount("/api", api.NewRouter(d.Service, notFound))

	r.Handle("/graphql", graphql.NewHandler(schema))

	dh := docs.NewHandler(health.Version)
	r.Get("/docs", dh.UI)
	r.Get("/docs/", dh.UI)
	r.Get("/docs/openapi.json", dh.JSON)
	r.Get("/docs/openapi.yaml", dh.YAML)

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}
	if d.Journal != nil {
		r.Get("/journal", d.Journal.Handler())
	}

	return r, nil
}
