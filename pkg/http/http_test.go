package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	Page   int    `query:"page" default:"1" validate:"min=1"`
	Limit  int    `query:"limit" default:"20" validate:"min=1,max=50"`
}

type routeFunc func(e *echo.Echo)

func (f routeFunc) RegisterRoutes(e *echo.Echo) { f(e) }

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, NotFoundError("Job not found")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
}

func TestAppErrorResponseHidesUnknownErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, errors.New("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestReadAndValidateQueryOnPost(t *testing.T) {
	e := echo.New()

	t.Run("defaults applied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/?symbol=btcusdt", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		var q queryRequest
		assert.Nil(t, ReadAndValidateQuery(c, &q))
		assert.Equal(t, "btcusdt", q.Symbol)
		assert.Equal(t, 1, q.Page)
		assert.Equal(t, 20, q.Limit)
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		var q queryRequest
		errs, ok := ReadAndValidateQuery(c, &q).([]ValidationError)
		require.True(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
		assert.Equal(t, "symbol", errs[0].Field)
	})

	t.Run("limit above max", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/?symbol=X&limit=51", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		var q queryRequest
		errs, ok := ReadAndValidateQuery(c, &q).([]ValidationError)
		require.True(t, ok)
		assert.Equal(t, "ERR_MAX", errs[0].Code)
		assert.Equal(t, "50", errs[0].Params["max"])
	})
}

func TestReadAndValidateRequestBody(t *testing.T) {
	type body struct {
		Name string `json:"name" validate:"required"`
	}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var b body
	errs, ok := ReadAndValidateRequest(c, &b).([]ValidationError)
	require.True(t, ok)
	assert.Equal(t, "name", errs[0].Field)
}

func TestServerExposesMetricsPerRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer(routeFunc(func(e *echo.Echo) {
		e.GET("/v1/jobs/:jobId", func(c echo.Context) error {
			return SuccessResponse(c, map[string]string{"id": c.Param("jobId")})
		})
	}), WithRegistry(reg), WithCORS(false))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/v1/jobs/:jobId",status="200"} 2`)
}

func TestCORSPreflightAndMetricsToggle(t *testing.T) {
	srv := NewServer(routeFunc(func(e *echo.Echo) {
		e.POST("/v1/candles", func(c echo.Context) error {
			return SuccessResponse(c, nil)
		})
	}), WithRegistry(prometheus.NewRegistry()), WithMetricsEndpoint(false))

	req := httptest.NewRequest(http.MethodOptions, "/v1/candles", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "Idempotency-Key")
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
