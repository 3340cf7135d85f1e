package passwordreset

import (
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Register adds the reset endpoints to the /api/auth router built by the
// login feature.
func Register(r chi.Router, h *Handler, limiter *ratelimit.Limiter) {
	if limiter != nil {
		r.With(limiter.Middleware(h.Log)).Post("/forgot-password", h.HandleForgot)
	} else {
		r.Post("/forgot-password", h.HandleForgot)
	}
	r.Post("/reset-password", h.HandleReset)
}
