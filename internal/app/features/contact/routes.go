// internal/app/features/contact/routes.go
package contact

import (
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if limiter != nil {
		r.Use(limiter.Middleware(h.Log))
	}
	r.Post("/", h.HandleContact)
	return r
}
