package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricewatch/internal/domain"
)

type mockAssetStore struct {
	assets   []domain.Asset
	upserted *domain.Asset
	err      error
}

func (m *mockAssetStore) ListAll(ctx context.Context) ([]domain.Asset, error) {
	return m.assets, m.err
}

func (m *mockAssetStore) Upsert(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	if m.err != nil {
		return nil, m.err
	}
	asset.Symbol = domain.NormalizeSymbol(asset.Symbol)
	asset.ID = 7
	m.upserted = &asset
	return &asset, nil
}

func newRouter(store AssetStore) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewHandler(store, zerolog.Nop()).RegisterRoutes)
	return r
}

func TestHandleListAssets(t *testing.T) {
	store := &mockAssetStore{assets: []domain.Asset{{ID: 1, Symbol: "BTC", Enabled: true}, {ID: 2, Symbol: "DOGE"}}}

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "DOGE", got[1].Symbol)
}

func TestHandleUpsertAsset_DefaultsEnabled(t *testing.T) {
	store := &mockAssetStore{}
	body := `{"symbol":"eth","binance_symbol":"ETHUSDT"}`

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.upserted)
	assert.True(t, store.upserted.Enabled)
	assert.Equal(t, "ETHUSDT", store.upserted.BinanceSymbol)
}

func TestHandleUpsertAsset_Disable(t *testing.T) {
	store := &mockAssetStore{}

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader(`{"symbol":"ETH","enabled":false}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.upserted.Enabled)
}

func TestHandleUpsertAsset_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"invalid input", `{"symbol":""}`, domain.ErrInvalidInput, http.StatusBadRequest},
		{"storage failure", `{"symbol":"BTC"}`, errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(&mockAssetStore{err: tt.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}
