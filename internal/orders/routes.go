package orders

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Show)
	r.Post("/orders", h.Create)
}

// MountGuestRoutes exposes only placement and single-order reads; the
// listing stays on the staff surface.
func (h *Handler) MountGuestRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Show)
}
