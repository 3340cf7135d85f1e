package orders

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts checkout under /api/orders.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleCheckout)
		pr.Get("/verify", h.HandleVerify)
	})
	return r
}

// WebhookRoutes mounts under /api/webhooks. The gateway signature is the only
// authentication.
func WebhookRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/payment", h.HandleWebhook)
	return r
}

// AccountRoutes mounts under /api/account/orders.
func AccountRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeMyOrders)
		pr.Get("/{id}", h.ServeMyOrder)
	})
	return r
}

// AdminRoutes mounts under /api/admin/orders.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))
		pr.Get("/", h.ServeAdminList)
		pr.Get("/{id}", h.ServeAdminOrder)
		pr.Patch("/{id}/status", h.HandleStatus)
	})
	return r
}
