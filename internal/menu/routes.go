package menu

import (
	"github.com/go-chi/chi/v5"
)

// MountGuestRoutes exposes the read-only menu to guest terminals.
func (h *Handler) MountGuestRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
}

// MountRoutes exposes the back-office product management endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.List)
	r.Get("/products/{id}", h.Show)
	r.Post("/products", h.Create)
	r.Put("/products/{id}", h.Update)
}
