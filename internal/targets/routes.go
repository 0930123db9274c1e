package targets

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/targets", h.List)
	r.Post("/targets", h.Create)
	r.Get("/targets/{id}", h.Show)
	r.Patch("/targets/{id}", h.Update)
	r.Post("/targets/{id}/submit", h.Submit)
	r.Post("/targets/{id}/cancel", h.Cancel)
	r.Post("/targets/{id}/refresh", h.Refresh)
}
