// Package web provides the HTTP API consumed by the table editor frontend:
// schema discovery, import session lifecycle, row editing, and commit.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pcrowther/gridfill/internal/importer"
	"github.com/pcrowther/gridfill/internal/schema"
	mw "github.com/pcrowther/gridfill/internal/web/middleware"
)

// SchemaProvider supplies table metadata for the import endpoints.
// Implemented by schema.Introspector.
type SchemaProvider interface {
	ListTables(ctx context.Context, schemaName string) ([]string, error)
	GetTable(ctx context.Context, schemaName, tableName string) (schema.Table, error)
}

// Server is the HTTP server for the import API.
type Server struct {
	sessions *importer.Registry
	schemas  SchemaProvider
	inserter importer.Inserter
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the session registry, schema provider and inserter into
// a routed HTTP server.
func NewServer(sessions *importer.Registry, schemas SchemaProvider, inserter importer.Inserter) *Server {
	s := &Server{
		sessions: sessions,
		schemas:  schemas,
		inserter: inserter,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// The editor frontend is served from a different origin in development.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{table}/schema", s.handleGetSchema)

		r.Post("/sessions", s.handleOpenSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleSessionState)
			r.Delete("/", s.handleCloseSession)

			r.Post("/upload", s.handleUpload)
			r.Post("/mapping", s.handleApplyMapping)

			r.Post("/rows", s.handleAddRow)
			r.Put("/rows/{row}/{column}", s.handleEditCell)
			r.Delete("/rows/{row}", s.handleRemoveRow)

			r.Post("/validate", s.handleValidate)
			r.Post("/commit", s.handleCommit)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
