package api

import (
	"net/http"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	"github.com/kumbhanChoksi/Signals-Backend/internal/middleware"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const streamWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Handler) GenerateSignal(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	req := &models.GenerateSignalRequest{}
	if verr := xhttp.ReadAndValidateQuery(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow(p.TenantID) {
		h.l.Warn("signal submit rate limited", logger.String("tenant_id", p.TenantID))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many signal requests, retry later"))
	}

	jobID, err := h.signals.Submit(c.Request().Context(), p.TenantID, req.Symbol, req.Timeframe)
	if err != nil {
		return h.fail(c, "submit signal", err)
	}
	return xhttp.SuccessResponse(c, models.GenerateSignalResponse{JobID: jobID})
}

func (h *Handler) LatestSignal(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}

	sig, err := h.signals.Latest(c.Request().Context(), p.TenantID)
	if err != nil {
		return h.fail(c, "latest signal", err)
	}
	if sig == nil {
		return xhttp.SuccessResponse(c, map[string]string{"message": "No signals found"})
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *Handler) SignalHistory(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateQuery(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	page, err := h.signals.History(c.Request().Context(), p.TenantID, req.Page, req.Limit)
	if err != nil {
		return h.fail(c, "signal history", err)
	}
	return xhttp.SuccessResponse(c, page)
}

// StreamSignals upgrades to a websocket and pushes every new signal of the
// caller's tenant until either side goes away.
func (h *Handler) StreamSignals(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.Request().Context()

	sub, err := h.subscriber.Subscribe(ctx, p.TenantID)
	if err != nil {
		h.l.Error("subscribe signal stream", logger.String("tenant_id", p.TenantID), logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("Signal stream unavailable"))
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.l.Debug("websocket upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.stream.PingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * h.stream.PingInterval))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.stream.PingInterval)
	defer ticker.Stop()

	h.l.Debug("signal stream opened", logger.String("tenant_id", p.TenantID))
	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.l.Debug("signal stream write failed", logger.Error(err))
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return nil
			}
		}
	}
}
