package api

import (
	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	"github.com/kumbhanChoksi/Signals-Backend/internal/middleware"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"

	"github.com/labstack/echo/v4"
)

const headerIdempotencyKey = "Idempotency-Key"

// IngestCandles stores a batch of candles. Replaying an Idempotency-Key
// answers 200 with insertedCount 0.
func (h *Handler) IngestCandles(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	req := &models.IngestCandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	inserted, err := h.ingestor.Ingest(c.Request().Context(), p.TenantID, req.Candles, c.Request().Header.Get(headerIdempotencyKey))
	if err != nil {
		return h.fail(c, "ingest candles", err)
	}
	return xhttp.SuccessResponse(c, models.IngestCandlesResponse{InsertedCount: inserted})
}
