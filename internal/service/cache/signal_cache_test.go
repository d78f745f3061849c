package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	"github.com/kumbhanChoksi/Signals-Backend/internal/testsupport"
	pkgcache "github.com/kumbhanChoksi/Signals-Backend/pkg/cache"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCache struct{}

var errDown = errors.New("connection refused")

func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error { return errDown }
func (brokenCache) Get(context.Context, string, interface{}) error                { return errDown }
func (brokenCache) Delete(context.Context, ...string) error                       { return errDown }
func (brokenCache) Exists(context.Context, ...string) (bool, error)               { return false, errDown }

func newCache(backend pkgcache.Service) *SignalCache {
	return NewSignalCache(backend, time.Minute, metrics.New(prometheus.NewRegistry()), logger.NewNop())
}

func sampleSignal(tenant string) *models.Signal {
	return &models.Signal{
		ID:         "sig-1",
		JobID:      "job-1",
		TenantID:   tenant,
		Output:     models.OutputSell,
		Confidence: 0.4,
		Features:   models.Features{EMAFast: 1, EMASlow: 2, ATR: 0.5, Trend: models.TrendBearish},
		Vetoes:     []string{},
		Summary:    "Trend is bearish.",
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSignalCacheRoundTripOnRedis(t *testing.T) {
	mr, client := testsupport.NewRedis(t)
	c := newCache(pkgcache.NewRedisCache(client, pkgcache.WithRedisPrefix("signals")))
	ctx := context.Background()

	_, ok := c.Get(ctx, "tenant-a")
	assert.False(t, ok)

	c.Set(ctx, "tenant-a", sampleSignal("tenant-a"))
	assert.True(t, mr.Exists("signals:signal:latest:tenant-a"))
	assert.Equal(t, time.Minute, mr.TTL("signals:signal:latest:tenant-a"))

	got, ok := c.Get(ctx, "tenant-a")
	require.True(t, ok)
	assert.Equal(t, sampleSignal("tenant-a"), got)

	_, ok = c.Get(ctx, "tenant-b")
	assert.False(t, ok)

	c.Invalidate(ctx, "tenant-a")
	_, ok = c.Get(ctx, "tenant-a")
	assert.False(t, ok)
}

func TestSignalCacheFillLosesToInvalidate(t *testing.T) {
	_, client := testsupport.NewRedis(t)
	c := newCache(pkgcache.NewRedisCache(client, pkgcache.WithRedisPrefix("signals")))
	ctx := context.Background()

	// reader takes the fence, then a worker finishes before the reader fills
	token := c.Fence(ctx, "tenant-a")
	c.Invalidate(ctx, "tenant-a")
	c.Fill(ctx, "tenant-a", sampleSignal("tenant-a"), token)

	_, ok := c.Get(ctx, "tenant-a")
	assert.False(t, ok)

	// with no invalidate in between the fill sticks
	token = c.Fence(ctx, "tenant-a")
	c.Fill(ctx, "tenant-a", sampleSignal("tenant-a"), token)
	got, ok := c.Get(ctx, "tenant-a")
	require.True(t, ok)
	assert.Equal(t, "sig-1", got.ID)
}

func TestSignalCacheExpires(t *testing.T) {
	mr, client := testsupport.NewRedis(t)
	c := newCache(pkgcache.NewRedisCache(client, pkgcache.WithRedisPrefix("signals")))
	ctx := context.Background()

	c.Set(ctx, "tenant-a", sampleSignal("tenant-a"))
	mr.FastForward(61 * time.Second)

	_, ok := c.Get(ctx, "tenant-a")
	assert.False(t, ok)
}

func TestSignalCacheSwallowsBackendFaults(t *testing.T) {
	c := newCache(brokenCache{})
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.Set(ctx, "tenant-a", sampleSignal("tenant-a"))
		c.Invalidate(ctx, "tenant-a")
	})
	_, ok := c.Get(ctx, "tenant-a")
	assert.False(t, ok)
}

func TestSignalCacheWithoutBackendAlwaysMisses(t *testing.T) {
	c := newCache(nil)
	ctx := context.Background()

	c.Set(ctx, "tenant-a", sampleSignal("tenant-a"))
	_, ok := c.Get(ctx, "tenant-a")
	assert.False(t, ok)
	c.Invalidate(ctx, "tenant-a")
}
