package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/ratelimit"
)

// RouterConfig collects the collaborators of the API router.
type RouterConfig struct {
	Service        LeadService
	Tokens         TokenParser
	Limiter        ratelimit.Limiter // nil disables rate limiting of /new
	MaxUploadBytes int64
}

const createRoute = "/api/buyers/new"

// NewRouter mounts the buyer lead API.
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Service, cfg.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api/buyers", func(r chi.Router) {
		r.Use(authenticate(cfg.Tokens))

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(rateLimit(cfg.Limiter, createRoute))
			}
			r.Post("/new", h.Create)
		})
		r.Get("/stats", h.Stats)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/history", h.History)
		})
	})
	return r
}
