package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers holding routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.HandleListHoldings)
		r.Post("/", h.HandleCreateHolding)

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.HandleDeleteHolding)
			r.Get("/state", h.HandleGetState)
			r.Get("/alerts", h.HandleListAlerts)
		})
	})
}
