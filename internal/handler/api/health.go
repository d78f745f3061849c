package api

import (
	"context"
	"net/http"
	"time"

	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/queue"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	probeOK    = "ok"
	probeError = "error"
)

type DBPinger interface {
	Health(ctx context.Context) error
}

type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type QueueStats interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

type HealthReport struct {
	Status string       `json:"status"`
	DB     string       `json:"db"`
	Redis  string       `json:"redis"`
	Queue  *queue.Stats `json:"queue,omitempty"`
}

// Health probes the durable store and Redis.
type Health struct {
	db      DBPinger
	redis   RedisPinger
	queue   QueueStats
	timeout time.Duration
	l       *logger.Logger
}

func NewHealth(db DBPinger, rdb RedisPinger, q QueueStats, l *logger.Logger) *Health {
	return &Health{db: db, redis: rdb, queue: q, timeout: 2 * time.Second, l: l}
}

func (h *Health) Report(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	r := HealthReport{Status: "ok", DB: probeOK, Redis: probeOK}
	if err := h.db.Health(ctx); err != nil {
		h.l.Warn("health: database probe failed", logger.Error(err))
		r.DB = probeError
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.l.Warn("health: redis probe failed", logger.Error(err))
		r.Redis = probeError
	}
	if r.DB != probeOK || r.Redis != probeOK {
		r.Status = "degraded"
	}

	if h.queue != nil && r.Redis == probeOK {
		if st, err := h.queue.Stats(ctx); err == nil {
			r.Queue = &st
		}
	}
	return r
}

func (h *Health) Check(c echo.Context) error {
	r := h.Report(c.Request().Context())
	if r.Status != "ok" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, r)
	}
	return xhttp.SuccessResponse(c, r)
}
