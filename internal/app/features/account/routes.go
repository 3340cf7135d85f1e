// internal/app/features/account/routes.go
package account

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/account. The orders feature mounts its own
// router at /api/account/orders.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Put("/", h.HandleUpdateProfile)
	r.Put("/password", h.HandleChangePassword)
	r.Get("/wishlist", h.ServeWishlist)
	r.Post("/wishlist/{productID}", h.HandleAdd)
	r.Delete("/wishlist/{productID}", h.HandleRemove)
	return r
}
