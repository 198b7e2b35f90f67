// Package handlers provides HTTP handlers for asset management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

// AssetStore is the subset of the asset repository the handlers need
type AssetStore interface {
	ListAll(ctx context.Context) ([]domain.Asset, error)
	Upsert(ctx context.Context, asset domain.Asset) (*domain.Asset, error)
}

// Handler handles asset HTTP requests
type Handler struct {
	assets AssetStore
	log    zerolog.Logger
}

// NewHandler creates a new asset handler
func NewHandler(assets AssetStore, log zerolog.Logger) *Handler {
	return &Handler{
		assets: assets,
		log:    log.With().Str("handler", "universe").Logger(),
	}
}

// upsertAssetRequest mirrors domain.Asset with Enabled optional (defaults to true)
type upsertAssetRequest struct {
	Symbol            string `json:"symbol"`
	Enabled           *bool  `json:"enabled"`
	BinanceSymbol     string `json:"binance_symbol"`
	CoinbaseProductID string `json:"coinbase_product_id"`
	CoingeckoID       string `json:"coingecko_id"`
}

// HandleListAssets handles GET /api/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.ListAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		h.writeError(w, http.StatusInternalServerError, "Failed to list assets")
		return
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// HandleUpsertAsset handles POST /api/assets
func (h *Handler) HandleUpsertAsset(w http.ResponseWriter, r *http.Request) {
	var req upsertAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	asset, err := h.assets.Upsert(r.Context(), domain.Asset{
		Symbol:            req.Symbol,
		Enabled:           enabled,
		BinanceSymbol:     req.BinanceSymbol,
		CoinbaseProductID: req.CoinbaseProductID,
		CoingeckoID:       req.CoingeckoID,
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to upsert asset")
		h.writeError(w, http.StatusInternalServerError, "Failed to upsert asset")
		return
	}

	h.writeJSON(w, http.StatusOK, asset)
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
