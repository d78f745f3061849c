package api

import (
	"github.com/kumbhanChoksi/Signals-Backend/internal/middleware"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) JobStatus(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}

	st, err := h.jobs.Status(c.Request().Context(), p.TenantID, c.Param("jobId"))
	if err != nil {
		return h.fail(c, "job status", err)
	}
	return xhttp.SuccessResponse(c, st)
}
