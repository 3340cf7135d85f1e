package health

import "github.com/go-chi/chi/v5"

// Routes serves readiness at the mount point and liveness under /live.
// Both are public so load balancers can probe without credentials.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeReady)
	r.Get("/live", h.ServeLive)
	return r
}
