package strategies

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricewatch/internal/domain"
	testingpkg "github.com/aristath/pricewatch/internal/testing"
)

func newTestRepo(t *testing.T) *Repository {
	db, cleanup := testingpkg.NewTestDB(t)
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestGetOrCreate_StoresDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.GetOrCreate(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStrategy("BTC"), s)

	again, err := repo.GetOrCreate(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestUpsert_ReplacesParameters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := domain.DefaultStrategy("ETH")
	s.BaseTP = 0.2
	s.CooldownSec = 600
	s.ConfirmRegime = false

	saved, err := repo.Upsert(ctx, "eth", s)
	require.NoError(t, err)
	assert.Equal(t, "ETH", saved.Symbol)

	got, err := repo.GetOrCreate(ctx, "ETH")
	require.NoError(t, err)
	assert.Equal(t, 0.2, got.BaseTP)
	assert.Equal(t, int64(600), got.CooldownSec)
	assert.False(t, got.ConfirmRegime)
}

func TestUpsert_Validates(t *testing.T) {
	repo := newTestRepo(t)

	s := domain.DefaultStrategy("BTC")
	s.SLPct = 1.5

	_, err := repo.Upsert(context.Background(), "BTC", s)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = repo.Upsert(context.Background(), " ", domain.DefaultStrategy(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
