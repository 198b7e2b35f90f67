package testing

import (
	"testing"

	"github.com/aristath/pricewatch/internal/database"
	"github.com/aristath/pricewatch/internal/domain"
)

// NewAssetFixtures returns a set of test assets covering full and partial provider mappings
func NewAssetFixtures() []domain.Asset {
	return []domain.Asset{
		{
			Symbol:            "BTC",
			Enabled:           true,
			BinanceSymbol:     "BTCUSDT",
			CoinbaseProductID: "BTC-USD",
			CoingeckoID:       "bitcoin",
		},
		{
			Symbol:            "ETH",
			Enabled:           true,
			BinanceSymbol:     "ETHUSDT",
			CoinbaseProductID: "ETH-USD",
			CoingeckoID:       "ethereum",
		},
		{
			Symbol:      "PEPE",
			Enabled:     true,
			CoingeckoID: "pepe",
		},
		{
			Symbol:        "DOGE",
			Enabled:       false,
			BinanceSymbol: "DOGEUSDT",
		},
	}
}

// InsertHolding writes a holding row directly and returns its id.
// No engine_state row is created, which exercises the lazy default path.
func InsertHolding(t *testing.T, db *database.DB, symbol string, entry, invested float64) int64 {
	t.Helper()

	res, err := db.Conn().Exec(
		"INSERT INTO holdings (symbol, entry, invested_amount, created_at) VALUES (?, ?, ?, 0)",
		symbol, entry, invested,
	)
	if err != nil {
		t.Fatalf("Failed to insert holding: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read holding id: %v", err)
	}
	return id
}
