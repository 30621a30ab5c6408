package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/hamzaawan7/blackcms/internal/api/middleware"
	"github.com/hamzaawan7/blackcms/internal/api/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateEntity http.HandlerFunc
	UpdateEntity http.HandlerFunc
	GetEntity    http.HandlerFunc
	ListEntities http.HandlerFunc
	DeleteEntity http.HandlerFunc

	ListVersions   http.HandlerFunc
	DiffVersions   http.HandlerFunc
	RestoreVersion http.HandlerFunc

	CreateTenant    http.HandlerFunc
	ListTenants     http.HandlerFunc
	DeleteTenant    http.HandlerFunc
	SwitchTenant    http.HandlerFunc
	ResetTenant     http.HandlerFunc
	InvalidateCache http.HandlerFunc

	CreateKey http.HandlerFunc
	ListKeys  http.HandlerFunc
	RevokeKey http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/content/{type}", func(r chi.Router) {
			r.Post("/", orNotImplemented(deps.CreateEntity))
			r.Get("/", orNotImplemented(deps.ListEntities))
			r.Get("/{id}", orNotImplemented(deps.GetEntity))
			r.Put("/{id}", orNotImplemented(deps.UpdateEntity))
			r.Delete("/{id}", orNotImplemented(deps.DeleteEntity))

			r.Get("/{id}/versions", orNotImplemented(deps.ListVersions))
			r.Get("/{id}/versions/diff", orNotImplemented(deps.DiffVersions))
			r.Post("/{id}/versions/{number}/restore", orNotImplemented(deps.RestoreVersion))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/tenants", orNotImplemented(deps.CreateTenant))
			r.Get("/api/v1/admin/tenants", orNotImplemented(deps.ListTenants))
			r.Delete("/api/v1/admin/tenants/{id}", orNotImplemented(deps.DeleteTenant))

			r.Post("/api/v1/admin/tenant-switch", orNotImplemented(deps.SwitchTenant))
			r.Delete("/api/v1/admin/tenant-switch", orNotImplemented(deps.ResetTenant))

			r.Post("/api/v1/admin/cache/invalidate", orNotImplemented(deps.InvalidateCache))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKey))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeys))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKey))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
