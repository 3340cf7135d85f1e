package authgoogle

import (
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /auth/google. Starting a sign-in writes an oauth_states
// row, so it shares the credential limiter; the callback is bounded by the
// state it must present.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.With(limiterMW(h, limiter)...).Get("/", h.ServeLogin)
	r.Get("/callback", h.ServeCallback)
	return r
}

func limiterMW(h *Handler, l *ratelimit.Limiter) chi.Middlewares {
	if l == nil {
		return nil
	}
	return chi.Middlewares{l.Middleware(h.Log)}
}
