package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	"github.com/kumbhanChoksi/Signals-Backend/internal/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/service/auth"
	svccache "github.com/kumbhanChoksi/Signals-Backend/internal/service/cache"
	"github.com/kumbhanChoksi/Signals-Backend/internal/service/ratelimit"
	"github.com/kumbhanChoksi/Signals-Backend/internal/testsupport"
	"github.com/kumbhanChoksi/Signals-Backend/internal/usecase"
	pkgcache "github.com/kumbhanChoksi/Signals-Backend/pkg/cache"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type recordingQueue struct {
	mu   sync.Mutex
	msgs []models.SignalJobMessage
}

func (q *recordingQueue) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, payload.(models.SignalJobMessage))
	return nil
}

func (q *recordingQueue) drain() []models.SignalJobMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.msgs
	q.msgs = nil
	return out
}

type testAPI struct {
	e        *echo.Echo
	mr       *miniredis.Miniredis
	queue    *recordingQueue
	worker   *usecase.SignalWorker
	notifier *repository.RedisSignalNotifier
}

func newTestAPI(t *testing.T, limiter *ratelimit.Limiter) *testAPI {
	t.Helper()
	l := logger.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	db := testsupport.NewSQLite(t)
	mr, rdb := testsupport.NewRedis(t)

	jobs := repository.NewSQLJobStore(db)
	signals := repository.NewSQLSignalStore(db)
	candles := repository.NewSQLCandleStore(db, l)
	cache := svccache.NewSignalCache(pkgcache.NewRedisCache(rdb, pkgcache.WithRedisPrefix("signals")), time.Minute, m, l)
	notifier := repository.NewRedisSignalNotifier(rdb, l)
	q := &recordingQueue{}

	if limiter == nil {
		limiter = ratelimit.New(100, 100)
	}
	h := NewHandler(
		usecase.NewSignalService(jobs, signals, q, cache, m, l),
		usecase.NewJobService(jobs, signals),
		usecase.NewCandleIngestor(candles, m, l),
		auth.NewJWTVerifier(testSecret, ""),
		limiter,
		notifier,
		NewHealth(db, rdb, nil, l),
		StreamConfig{PingInterval: time.Second},
		l,
	)
	srv := xhttp.NewServer(h, xhttp.WithLogger(l), xhttp.WithRegistry(prometheus.NewRegistry()))

	return &testAPI{
		e:        srv.Echo(),
		mr:       mr,
		queue:    q,
		worker:   usecase.NewSignalWorker(jobs, signals, candles, cache, notifier, m, usecase.WorkerConfig{}, l),
		notifier: notifier,
	}
}

func token(t *testing.T, tenant string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:   "user-" + tenant,
		TenantID: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (a *testAPI) do(t *testing.T, method, path, tenant string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tenant != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, tenant))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// runQueued processes every enqueued job.
func (a *testAPI) runQueued(t *testing.T) {
	t.Helper()
	for _, msg := range a.queue.drain() {
		require.NoError(t, a.worker.Handle(context.Background(), msg))
	}
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, rec.Code, env.Status)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func candleBatch(n int) models.IngestCandlesRequest {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.IngestCandlesRequest{}
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		req.Candles = append(req.Candles, models.CandleInput{
			Symbol:    "btcusdt",
			Timeframe: "1m",
			Timestamp: t0.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		})
	}
	return req
}

func TestRoutesRequireBearerToken(t *testing.T) {
	a := newTestAPI(t, nil)
	for _, path := range []string{"/v1/signals/latest", "/v1/signals/history", "/v1/jobs/x"} {
		rec := a.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := a.do(t, http.MethodPost, "/v1/signals/generate?symbol=BTCUSDT&timeframe=1m", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateSignalAndPollJob(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/v1/candles", "tenant-a", candleBatch(30))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/signals/generate?symbol=btcusdt&timeframe=1m", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created models.GenerateSignalResponse
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.JobID)

	rec = a.do(t, http.MethodGet, "/v1/jobs/"+created.JobID, "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st models.JobStatus
	decodeData(t, rec, &st)
	assert.Equal(t, models.JobPending, st.Status)

	a.runQueued(t)

	rec = a.do(t, http.MethodGet, "/v1/jobs/"+created.JobID, "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = models.JobStatus{}
	decodeData(t, rec, &st)
	assert.Equal(t, models.JobSuccess, st.Status)
	require.NotNil(t, st.Signal)
	assert.Equal(t, models.OutputBuy, st.Signal.Output)

	// same body for foreign and absent jobs
	foreign := a.do(t, http.MethodGet, "/v1/jobs/"+created.JobID, "tenant-b", nil)
	absent := a.do(t, http.MethodGet, "/v1/jobs/does-not-exist", "tenant-b", nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, absent.Body.String(), foreign.Body.String())
	assert.Contains(t, foreign.Body.String(), "ERR_NOT_FOUND")
}

func TestGenerateSignalValidation(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/v1/signals/generate?timeframe=1m", "tenant-a", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []xhttp.ValidationError
	decodeData(t, rec, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "symbol", errs[0].Field)
	assert.Empty(t, a.queue.drain())
}

func TestGenerateSignalRateLimited(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := newTestAPI(t, ratelimit.New(1, 0.001, ratelimit.WithClock(func() time.Time { return now })))

	rec := a.do(t, http.MethodPost, "/v1/signals/generate?symbol=BTCUSDT&timeframe=1m", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/signals/generate?symbol=BTCUSDT&timeframe=1m", "tenant-a", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_TOO_MANY_REQUESTS")

	// other tenants have their own bucket
	rec = a.do(t, http.MethodPost, "/v1/signals/generate?symbol=BTCUSDT&timeframe=1m", "tenant-b", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLatestAndHistory(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/v1/signals/latest", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty map[string]string
	decodeData(t, rec, &empty)
	assert.Equal(t, "No signals found", empty["message"])

	for i := 0; i < 3; i++ {
		rec = a.do(t, http.MethodPost, "/v1/signals/generate?symbol=BTCUSDT&timeframe=1m", "tenant-a", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	a.runQueued(t)

	rec = a.do(t, http.MethodGet, "/v1/signals/latest", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest models.Signal
	decodeData(t, rec, &latest)
	assert.Equal(t, "tenant-a", latest.TenantID)

	rec = a.do(t, http.MethodGet, "/v1/signals/history", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.SignalPage
	decodeData(t, rec, &page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Data, 3)
	assert.Equal(t, latest.ID, page.Data[0].ID)

	rec = a.do(t, http.MethodGet, "/v1/signals/history?page=2&limit=2", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = models.SignalPage{}
	decodeData(t, rec, &page)
	assert.Len(t, page.Data, 1)

	rec = a.do(t, http.MethodGet, "/v1/signals/history?limit=51", "tenant-a", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/signals/history?page=0", "tenant-a", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/signals/history", "tenant-b", nil)
	page = models.SignalPage{}
	decodeData(t, rec, &page)
	assert.Zero(t, page.Total)
}

func TestIngestCandlesIdempotencyKey(t *testing.T) {
	a := newTestAPI(t, nil)
	batch := candleBatch(5)

	rec := a.do(t, http.MethodPost, "/v1/candles", "tenant-a", batch, "Idempotency-Key", "upload-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.IngestCandlesResponse
	decodeData(t, rec, &res)
	assert.EqualValues(t, 5, res.InsertedCount)

	rec = a.do(t, http.MethodPost, "/v1/candles", "tenant-a", batch, "Idempotency-Key", "upload-1")
	require.Equal(t, http.StatusOK, rec.Code)
	res = models.IngestCandlesResponse{}
	decodeData(t, rec, &res)
	assert.Zero(t, res.InsertedCount)
}

func TestIngestCandlesValidation(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/v1/candles", "tenant-a", models.IngestCandlesRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := candleBatch(2)
	bad.Candles[1].Open = -1
	rec = a.do(t, http.MethodPost, "/v1/candles", "tenant-a", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_GT")

	badTime := candleBatch(2)
	badTime.Candles[0].Timestamp = "not a time"
	rec = a.do(t, http.MethodPost, "/v1/candles", "tenant-a", badTime)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_BAD_REQUEST")
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var r HealthReport
	decodeData(t, rec, &r)
	assert.Equal(t, HealthReport{Status: "ok", DB: "ok", Redis: "ok"}, r)

	a.mr.Close()
	rec = a.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	r = HealthReport{}
	decodeData(t, rec, &r)
	assert.Equal(t, "degraded", r.Status)
	assert.Equal(t, "error", r.Redis)
	assert.Equal(t, "ok", r.DB)
}

func TestStreamPushesTenantSignals(t *testing.T) {
	a := newTestAPI(t, nil)
	srv := httptest.NewServer(a.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/signals/stream"
	header := http.Header{}
	header.Set(echo.HeaderAuthorization, "Bearer "+token(t, "tenant-a"))
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	ctx := context.Background()
	other := models.SignalEvent{Signal: models.Signal{ID: "sig-b", TenantID: "tenant-b"}, Symbol: "ETHUSDT"}
	mine := models.SignalEvent{Signal: models.Signal{ID: "sig-a", TenantID: "tenant-a", Vetoes: []string{}}, Symbol: "BTCUSDT", Timeframe: "1m"}
	require.NoError(t, a.notifier.PublishSignal(ctx, other))
	require.NoError(t, a.notifier.PublishSignal(ctx, mine))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got models.SignalEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "sig-a", got.Signal.ID)
	assert.Equal(t, "BTCUSDT", got.Symbol)
}

func TestStreamRejectsMissingToken(t *testing.T) {
	a := newTestAPI(t, nil)
	srv := httptest.NewServer(a.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/signals/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
