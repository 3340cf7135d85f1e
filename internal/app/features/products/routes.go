// internal/app/features/products/routes.go
package products

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the public catalog under /api/products.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/featured", h.ServeFeatured)
	r.Get("/compare", h.ServeCompare)
	r.Get("/{slug}", h.ServeProduct)
	r.Get("/{slug}/related", h.ServeRelated)
	return r
}

// AdminRoutes mounts product management under /api/admin/products.
//
// Example from bootstrap:
//
//	r.Mount("/api/admin/products", products.AdminRoutes(h, sessionMgr))
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))

		pr.Get("/", h.ServeAdminList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeAdminProduct)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})
	return r
}
