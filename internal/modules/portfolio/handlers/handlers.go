// Package handlers provides HTTP handlers for holdings, their engine state and alert history.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// HoldingStore is the subset of the holding repository the handlers need
type HoldingStore interface {
	List(ctx context.Context, symbol string) ([]domain.Holding, error)
	GetByID(ctx context.Context, id int64) (*domain.Holding, error)
	Create(ctx context.Context, h domain.Holding) (*domain.Holding, error)
	Delete(ctx context.Context, id int64) error
}

// StateStore loads engine state
type StateStore interface {
	Load(ctx context.Context, holdingID int64) (domain.EngineState, error)
}

// AlertLister lists ledger entries
type AlertLister interface {
	ListRecent(ctx context.Context, holdingID int64, limit int) ([]domain.AlertRecord, error)
}

// Handler handles holding HTTP requests
type Handler struct {
	holdings HoldingStore
	states   StateStore
	alerts   AlertLister
	log      zerolog.Logger
}

// NewHandler creates a new holdings handler
func NewHandler(holdings HoldingStore, states StateStore, alerts AlertLister, log zerolog.Logger) *Handler {
	return &Handler{
		holdings: holdings,
		states:   states,
		alerts:   alerts,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleListHoldings handles GET /api/holdings?symbol=S
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdings.List(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to list holdings")
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// HandleCreateHolding handles POST /api/holdings
func (h *Handler) HandleCreateHolding(w http.ResponseWriter, r *http.Request) {
	var req domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.ID = 0

	created, err := h.holdings.Create(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err, "Failed to create holding")
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleDeleteHolding handles DELETE /api/holdings/{id}
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := h.holdingID(w, r)
	if !ok {
		return
	}

	if err := h.holdings.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err, "Failed to delete holding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetState handles GET /api/holdings/{id}/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.holdingID(w, r)
	if !ok {
		return
	}
	if _, err := h.holdings.GetByID(r.Context(), id); err != nil {
		h.writeDomainError(w, err, "Failed to load holding")
		return
	}

	st, err := h.states.Load(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err, "Failed to load engine state")
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// HandleListAlerts handles GET /api/holdings/{id}/alerts?limit=N
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.holdingID(w, r)
	if !ok {
		return
	}

	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	if _, err := h.holdings.GetByID(r.Context(), id); err != nil {
		h.writeDomainError(w, err, "Failed to load holding")
		return
	}

	records, err := h.alerts.ListRecent(r.Context(), id, limit)
	if err != nil {
		h.writeDomainError(w, err, "Failed to list alerts")
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) holdingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, http.StatusBadRequest, "Invalid holding id")
		return 0, false
	}
	return id, true
}

// writeDomainError maps domain errors to HTTP status codes
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		h.writeError(w, http.StatusInternalServerError, message)
	}
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
