package auditlog

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes is read-only; events are written by system/auditlog as they happen.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeList)
	return r
}
