package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers strategy routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/strategies", func(r chi.Router) {
		r.Get("/{symbol}", h.HandleGetStrategy)
		r.Put("/{symbol}", h.HandleUpdateStrategy)
	})
}
