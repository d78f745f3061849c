package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/testsupport"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignal(tenant, jobID string, createdAt time.Time) *models.Signal {
	return &models.Signal{
		ID:         uuid.NewString(),
		JobID:      jobID,
		TenantID:   tenant,
		Output:     models.OutputBuy,
		Confidence: 0.75,
		Features:   models.Features{EMAFast: 101.5, EMASlow: 100.25, ATR: 1.5, Trend: models.TrendBullish},
		Vetoes:     []string{},
		Summary:    "Trend is bullish.",
		CreatedAt:  createdAt,
	}
}

func TestSignalStoreCreateIsOncePerJob(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLSignalStore(testsupport.NewSQLite(t))

	jobID := uuid.NewString()
	first, err := store.Create(ctx, newSignal("tenant-a", jobID, time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, models.Features{EMAFast: 101.5, EMASlow: 100.25, ATR: 1.5, Trend: models.TrendBullish}, first.Features)
	assert.Equal(t, []string{}, first.Vetoes)
	assert.False(t, first.CreatedAt.IsZero())

	replay := newSignal("tenant-a", jobID, time.Time{})
	replay.Output = models.OutputSell
	second, err := store.Create(ctx, replay)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.OutputBuy, second.Output)

	n, err := store.Count(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSignalStoreLatestAndHistory(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLSignalStore(testsupport.NewSQLite(t))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		s, err := store.Create(ctx, newSignal("tenant-a", uuid.NewString(), base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	_, err := store.Create(ctx, newSignal("tenant-b", uuid.NewString(), base.Add(time.Hour)))
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, ids[4], latest.ID)

	page, err := store.History(ctx, "tenant-a", 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, err = store.History(ctx, "tenant-a", 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	page, err = store.History(ctx, "tenant-a", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	n, err := store.Count(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestSignalStoreTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLSignalStore(testsupport.NewSQLite(t))

	s, err := store.Create(ctx, newSignal("tenant-a", uuid.NewString(), time.Time{}))
	require.NoError(t, err)

	_, err = store.Latest(ctx, "tenant-b")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	_, err = store.GetByJob(ctx, "tenant-b", s.JobID)
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	n, err := store.Count(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Zero(t, n)
}
