package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	pkgcache "github.com/kumbhanChoksi/Signals-Backend/pkg/cache"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"

	"github.com/google/uuid"
)

const (
	latestSignalKey = "signal:latest"
	fenceKey        = "signal:fence"
)

// SignalCache holds each tenant's latest signal. It never fails its caller:
// backend faults are logged and read as a miss. A nil backend always misses.
type SignalCache struct {
	backend pkgcache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
	l       *logger.Logger
}

func NewSignalCache(backend pkgcache.Service, ttl time.Duration, metrics domrepo.Metrics, l *logger.Logger) *SignalCache {
	return &SignalCache{backend: backend, ttl: ttl, metrics: metrics, l: l}
}

func key(tenantID string) string {
	return pkgcache.GenerateKey(latestSignalKey, tenantID)
}

func fence(tenantID string) string {
	return pkgcache.GenerateKey(fenceKey, tenantID)
}

// Get returns the cached signal and whether it was present.
func (c *SignalCache) Get(ctx context.Context, tenantID string) (*models.Signal, bool) {
	if c.backend == nil {
		c.metrics.RecordCache("miss")
		return nil, false
	}

	var sig models.Signal
	err := c.backend.Get(ctx, key(tenantID), &sig)
	switch {
	case err == nil:
		c.metrics.RecordCache("hit")
		return &sig, true
	case errors.Is(err, pkgcache.ErrCacheMiss):
		c.metrics.RecordCache("miss")
	default:
		c.metrics.RecordCache("error")
		c.l.Warn("signal cache read failed",
			logger.String("tenant_id", tenantID),
			logger.Error(err))
	}
	return nil, false
}

func (c *SignalCache) Set(ctx context.Context, tenantID string, sig *models.Signal) {
	if c.backend == nil || sig == nil {
		return
	}
	if err := c.backend.Set(ctx, key(tenantID), sig, c.ttl); err != nil {
		c.metrics.RecordCache("error")
		c.l.Warn("signal cache write failed",
			logger.String("tenant_id", tenantID),
			logger.Error(err))
	}
}

// Fence returns the tenant's invalidation token. Read it before loading the
// value you intend to pass to Fill.
func (c *SignalCache) Fence(ctx context.Context, tenantID string) string {
	if c.backend == nil {
		return ""
	}
	var token string
	if err := c.backend.Get(ctx, fence(tenantID), &token); err != nil {
		return ""
	}
	return token
}

// Fill caches sig unless an Invalidate ran since token was read. The check
// runs after the write, so an Invalidate racing the write still wins.
func (c *SignalCache) Fill(ctx context.Context, tenantID string, sig *models.Signal, token string) {
	if c.backend == nil || sig == nil {
		return
	}
	c.Set(ctx, tenantID, sig)
	if c.Fence(ctx, tenantID) != token {
		c.l.Debug("signal cache fill raced an invalidate", logger.String("tenant_id", tenantID))
		c.drop(ctx, tenantID)
	}
}

// Invalidate moves the tenant's fence, then drops the cached signal.
func (c *SignalCache) Invalidate(ctx context.Context, tenantID string) {
	if c.backend == nil {
		return
	}
	if err := c.backend.Set(ctx, fence(tenantID), uuid.NewString(), c.ttl); err != nil {
		c.metrics.RecordCache("error")
		c.l.Warn("signal cache fence write failed",
			logger.String("tenant_id", tenantID),
			logger.Error(err))
	}
	c.drop(ctx, tenantID)
}

func (c *SignalCache) drop(ctx context.Context, tenantID string) {
	if err := c.backend.Delete(ctx, key(tenantID)); err != nil {
		c.metrics.RecordCache("error")
		c.l.Warn("signal cache invalidate failed",
			logger.String("tenant_id", tenantID),
			logger.Error(err))
	}
}
