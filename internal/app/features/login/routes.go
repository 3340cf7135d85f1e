// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/auth. Credential endpoints share limiter.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Group(func(lr chi.Router) {
		if limiter != nil {
			lr.Use(limiter.Middleware(h.Log))
		}
		lr.Post("/register", h.HandleRegister)
		lr.Post("/login", h.HandleLogin)
		lr.Post("/token", h.HandleToken)
	})
	r.Post("/logout", h.HandleLogout)
	r.Get("/me", h.ServeMe)
	return r
}
