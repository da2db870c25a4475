package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(h *Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Add middleware stack
	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(ContentTypeJSON)

	// CORS configuration for browser clients reading rasters with range requests
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Range"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Content-Length", "Content-Range"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Health check endpoint
	r.Get("/health", h.Health)

	// Landing page
	r.Get("/", h.LandingPage)

	// Items
	r.Route("/items", func(r chi.Router) {
		// rasters are already compressed; only the JSON routes are gzipped
		gzipJSON := middleware.Compress(5, "application/json", "application/geo+json")
		r.With(gzipJSON).Get("/", h.Items)
		r.With(gzipJSON).Get("/{itemId}", h.Item)

		// Raster download
		r.Get("/{itemId}/data", h.ItemData)
		r.Head("/{itemId}/data", h.ItemData)
	})

	// Custom 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	// Custom 405 handler
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
