package dashboard

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard/options", h.Options)
	r.Get("/dashboard/company", h.Company)
	r.Get("/dashboard/department/{id}", h.Department)
	r.Get("/dashboard/personal/{id}", h.Personal)
	r.Get("/dashboard/personal/by-user/{userID}", h.PersonalByUser)
}
