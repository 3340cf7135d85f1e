package cart

import "github.com/go-chi/chi/v5"

// Routes mounts /api/cart.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/quote", h.HandleQuote)
	return r
}
