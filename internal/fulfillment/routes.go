package fulfillment

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/lines/{id}/move", h.Move)
	r.Get("/lines/{id}/counters", h.Counters)
	r.Post("/orders/{id}/recalc", h.Recalc)
}
