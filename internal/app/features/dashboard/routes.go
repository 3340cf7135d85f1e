package dashboard

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the admin summary (order counts, revenue, low stock) at the
// mount point. Admins only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeDashboard)
	return r
}
