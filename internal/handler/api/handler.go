package api

import (
	"errors"
	"time"

	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/middleware"
	"github.com/kumbhanChoksi/Signals-Backend/internal/service/ratelimit"
	"github.com/kumbhanChoksi/Signals-Backend/internal/usecase"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type StreamConfig struct {
	PingInterval time.Duration
}

// Handler serves the public HTTP API.
type Handler struct {
	signals    *usecase.SignalService
	jobs       *usecase.JobService
	ingestor   *usecase.CandleIngestor
	auth       domrepo.Authenticator
	limiter    *ratelimit.Limiter
	subscriber domrepo.SignalSubscriber
	health     *Health
	stream     StreamConfig
	l          *logger.Logger
}

func NewHandler(
	signals *usecase.SignalService,
	jobs *usecase.JobService,
	ingestor *usecase.CandleIngestor,
	auth domrepo.Authenticator,
	limiter *ratelimit.Limiter,
	subscriber domrepo.SignalSubscriber,
	health *Health,
	stream StreamConfig,
	l *logger.Logger,
) *Handler {
	if stream.PingInterval <= 0 {
		stream.PingInterval = 30 * time.Second
	}
	return &Handler{
		signals:    signals,
		jobs:       jobs,
		ingestor:   ingestor,
		auth:       auth,
		limiter:    limiter,
		subscriber: subscriber,
		health:     health,
		stream:     stream,
		l:          l,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health.Check)

	v1 := e.Group("/v1", middleware.Auth(h.auth, h.l))
	v1.POST("/signals/generate", h.GenerateSignal)
	v1.GET("/signals/latest", h.LatestSignal)
	v1.GET("/signals/history", h.SignalHistory)
	v1.GET("/signals/stream", h.StreamSignals)
	v1.GET("/jobs/:jobId", h.JobStatus)
	v1.POST("/candles", h.IngestCandles)
}

// fail renders a use case error. Anything unexpected is logged and hidden
// behind a generic 500.
func (h *Handler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrValidation):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("Resource not found").WithError(err))
	case errors.Is(err, domrepo.ErrUnauthorized):
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Unauthorized").WithError(err))
	}
	h.l.Error(op+" failed",
		logger.String("route", c.Path()),
		logger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

func unauthorized(c echo.Context) error {
	return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Unauthorized"))
}
