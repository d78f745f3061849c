package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	"github.com/kumbhanChoksi/Signals-Backend/internal/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/testsupport"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candles(symbol string, start time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = models.Candle{
			Symbol:    symbol,
			Timeframe: "1m",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return out
}

func TestCandleStoreSkipsNaturalKeyDuplicates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLCandleStore(testsupport.NewSQLite(t), logger.NewNop())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := store.InsertBatch(ctx, "tenant-a", candles("BTCUSDT", start, 10), "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = store.InsertBatch(ctx, "tenant-a", candles("BTCUSDT", start, 12), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.InsertBatch(ctx, "tenant-b", candles("BTCUSDT", start, 10), "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n, "natural key includes the tenant")
}

func TestCandleStoreIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLCandleStore(testsupport.NewSQLite(t), logger.NewNop())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := store.InsertBatch(ctx, "tenant-a", candles("ETHUSDT", start, 5), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	seen, err := store.HasIdempotencyKey(ctx, "tenant-a", "batch-1")
	require.NoError(t, err)
	assert.True(t, seen)

	n, err = store.InsertBatch(ctx, "tenant-a", candles("ETHUSDT", start.Add(time.Hour), 5), "batch-1")
	require.NoError(t, err)
	assert.Zero(t, n, "a replayed key writes nothing even for new candles")

	got, err := store.LatestN(ctx, "tenant-a", "ETHUSDT", "1m", 50)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	seen, err = store.HasIdempotencyKey(ctx, "tenant-b", "batch-1")
	require.NoError(t, err)
	assert.False(t, seen, "keys are scoped per tenant")
}

func TestCandleStoreLatestNAscending(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLCandleStore(testsupport.NewSQLite(t), logger.NewNop())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.InsertBatch(ctx, "tenant-a", candles("BTCUSDT", start, 60), "")
	require.NoError(t, err)

	got, err := store.LatestN(ctx, "tenant-a", "BTCUSDT", "1m", 50)
	require.NoError(t, err)
	require.Len(t, got, 50)
	assert.True(t, got[0].Timestamp.Equal(start.Add(10*time.Minute)))
	assert.True(t, got[49].Timestamp.Equal(start.Add(59*time.Minute)))
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())

	other, err := store.LatestN(ctx, "tenant-a", "BTCUSDT", "5m", 50)
	require.NoError(t, err)
	assert.Empty(t, other)
}
