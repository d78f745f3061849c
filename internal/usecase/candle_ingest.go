package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/util"
)

const maxIdempotencyKeyLen = 255

// CandleIngestor writes tenant candles. Candles whose natural key already
// exists are skipped, and a repeated idempotency key makes the call a no-op.
type CandleIngestor struct {
	candles domrepo.CandleStore
	metrics domrepo.Metrics
	l       *logger.Logger
}

func NewCandleIngestor(candles domrepo.CandleStore, metrics domrepo.Metrics, l *logger.Logger) *CandleIngestor {
	return &CandleIngestor{candles: candles, metrics: metrics, l: l}
}

// Ingest validates every input before writing anything and returns the
// number of candles actually inserted.
func (i *CandleIngestor) Ingest(ctx context.Context, tenantID string, inputs []models.CandleInput, idempotencyKey string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenant is required", domrepo.ErrValidation)
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		return 0, fmt.Errorf("%w: idempotency key longer than %d", domrepo.ErrValidation, maxIdempotencyKeyLen)
	}

	candles, err := toCandles(tenantID, inputs)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, nil
	}

	start := time.Now()
	if idempotencyKey != "" {
		seen, err := i.candles.HasIdempotencyKey(ctx, tenantID, idempotencyKey)
		if err != nil {
			return 0, fmt.Errorf("check idempotency key: %w", err)
		}
		if seen {
			i.l.Debug("skip replayed candle batch",
				logger.String("tenant_id", tenantID),
				logger.String("idempotency_key", idempotencyKey))
			return 0, nil
		}
	}

	inserted, err := i.candles.InsertBatch(ctx, tenantID, candles, idempotencyKey)
	if err != nil {
		i.metrics.RecordError("ingest")
		return 0, fmt.Errorf("insert candles: %w", err)
	}
	i.metrics.RecordCandlesInserted(inserted)
	i.metrics.RecordLatency("candle_ingest", time.Since(start).Seconds())

	i.l.Debug("candles ingested",
		logger.String("tenant_id", tenantID),
		logger.Int("received", len(candles)),
		logger.Int64("inserted", inserted))
	return inserted, nil
}

func toCandles(tenantID string, inputs []models.CandleInput) ([]models.Candle, error) {
	out := make([]models.Candle, 0, len(inputs))
	for idx, in := range inputs {
		symbol := util.NormalizeSymbol(in.Symbol)
		timeframe := strings.TrimSpace(in.Timeframe)
		if symbol == "" || timeframe == "" {
			return nil, fmt.Errorf("%w: candles[%d]: symbol and timeframe are required", domrepo.ErrValidation, idx)
		}
		ts, ok := util.ParseTime(in.Timestamp)
		if !ok {
			return nil, fmt.Errorf("%w: candles[%d]: invalid timestamp %q", domrepo.ErrValidation, idx, in.Timestamp)
		}
		for _, p := range []float64{in.Open, in.High, in.Low, in.Close} {
			if !(p > 0) || math.IsInf(p, 0) {
				return nil, fmt.Errorf("%w: candles[%d]: prices must be positive", domrepo.ErrValidation, idx)
			}
		}
		if !(in.Volume >= 0) || math.IsInf(in.Volume, 0) {
			return nil, fmt.Errorf("%w: candles[%d]: volume must not be negative", domrepo.ErrValidation, idx)
		}

		out = append(out, models.Candle{
			TenantID:  tenantID,
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: ts,
			Open:      in.Open,
			High:      in.High,
			Low:       in.Low,
			Close:     in.Close,
			Volume:    in.Volume,
		})
	}
	return out, nil
}
