package alerts

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricewatch/internal/database"
	"github.com/aristath/pricewatch/internal/domain"
	testingpkg "github.com/aristath/pricewatch/internal/testing"
)

func newTestRepo(t *testing.T) (*Repository, *database.DB) {
	db, cleanup := testingpkg.NewTestDB(t)
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop()), db
}

func TestBucket(t *testing.T) {
	tests := []struct {
		now      int64
		expected int64
	}{
		{0, 0},
		{299, 0},
		{300, 300},
		{1_700_000_123, 1_700_000_100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Bucket(tt.now), "now=%d", tt.now)
	}
}

func TestEligibility_WithinAndAcrossBuckets(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	id := testingpkg.InsertHolding(t, db, "BTC", 100, 1)
	now := int64(1_700_000_100) // bucket start

	ok, err := repo.Eligible(ctx, id, domain.SignalTakeProfit, now)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Record(ctx, id, domain.SignalTakeProfit, "tp", now))

	ok, err = repo.Eligible(ctx, id, domain.SignalTakeProfit, now+299)
	require.NoError(t, err)
	assert.False(t, ok, "same bucket")

	ok, err = repo.Eligible(ctx, id, domain.SignalStopLoss, now+10)
	require.NoError(t, err)
	assert.True(t, ok, "other kind")

	ok, err = repo.Eligible(ctx, id, domain.SignalTakeProfit, now+300)
	require.NoError(t, err)
	assert.True(t, ok, "next bucket")
}

func TestRecord_DuplicateIsBenign(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	id := testingpkg.InsertHolding(t, db, "BTC", 100, 1)

	require.NoError(t, repo.Record(ctx, id, domain.SignalStopLoss, "first", 1_700_000_100))
	require.NoError(t, repo.Record(ctx, id, domain.SignalStopLoss, "second", 1_700_000_200))

	records, err := repo.ListRecent(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Message)
	assert.Equal(t, int64(1_700_000_100), records[0].Bucket)
}

func TestListRecent_NewestFirstWithLimit(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	id := testingpkg.InsertHolding(t, db, "BTC", 100, 1)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, repo.Record(ctx, id, domain.SignalTrailingUpdate, "u", 1_700_000_100+i*300))
	}

	records, err := repo.ListRecent(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1_700_001_300), records[0].Bucket)
	assert.Equal(t, domain.SignalTrailingUpdate, records[0].Kind)
	assert.Equal(t, int64(1_700_001_300), records[0].CreatedAt.Unix())
}

func TestPruneBefore(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	id := testingpkg.InsertHolding(t, db, "BTC", 100, 1)

	require.NoError(t, repo.Record(ctx, id, domain.SignalStopLoss, "old", 1_000))
	require.NoError(t, repo.Record(ctx, id, domain.SignalStopLoss, "new", 10_000))

	n, err := repo.PruneBefore(ctx, 5_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	records, err := repo.ListRecent(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Message)
}

func TestDeduplicator(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	id := testingpkg.InsertHolding(t, db, "ETH", 10, 1)
	d := NewDeduplicator(repo)
	sig := domain.Signal{Kind: domain.SignalTrailingStop, Message: "stop"}
	now := int64(1_700_000_100)

	ok, err := d.Eligible(ctx, id, sig, now)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Record(ctx, id, sig, now))

	ok, err = d.Eligible(ctx, id, sig, now+1)
	require.NoError(t, err)
	assert.False(t, ok)
}
