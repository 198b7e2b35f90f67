// Package handlers provides HTTP handlers for strategy management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

// StrategyStore is the subset of the strategy repository the handlers need
type StrategyStore interface {
	GetOrCreate(ctx context.Context, symbol string) (domain.Strategy, error)
	Upsert(ctx context.Context, symbol string, s domain.Strategy) (domain.Strategy, error)
}

// Handler handles strategy HTTP requests
type Handler struct {
	strategies StrategyStore
	log        zerolog.Logger
}

// NewHandler creates a new strategy handler
func NewHandler(strategies StrategyStore, log zerolog.Logger) *Handler {
	return &Handler{
		strategies: strategies,
		log:        log.With().Str("handler", "strategies").Logger(),
	}
}

// HandleGetStrategy handles GET /api/strategies/{symbol}
func (h *Handler) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	s, err := h.strategies.GetOrCreate(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to load strategy")
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

// HandleUpdateStrategy handles PUT /api/strategies/{symbol}.
// Fields missing from the body keep their current values.
func (h *Handler) HandleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	current, err := h.strategies.GetOrCreate(r.Context(), symbol)
	if err != nil {
		h.writeDomainError(w, err, "Failed to load strategy")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&current); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.strategies.Upsert(r.Context(), symbol, current)
	if err != nil {
		h.writeDomainError(w, err, "Failed to update strategy")
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, domain.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).Msg(message)
	h.writeError(w, http.StatusInternalServerError, message)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
