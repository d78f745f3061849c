package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	pkgkafka "github.com/kumbhanChoksi/Signals-Backend/pkg/kafka"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
)

// KafkaCandlesHandler feeds candle batches from a topic into the ingestor.
type KafkaCandlesHandler struct {
	topic    string
	ingestor *CandleIngestor
	metrics  domrepo.Metrics
	l        *logger.Logger
}

func NewKafkaCandlesHandler(topic string, ingestor *CandleIngestor, metrics domrepo.Metrics, l *logger.Logger) *KafkaCandlesHandler {
	return &KafkaCandlesHandler{topic: topic, ingestor: ingestor, metrics: metrics, l: l}
}

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

// Malformed batches return an error, so they land on the consumer's
// dead-letter topic once retries run out.
func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var m models.CandleBatchMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode candle batch: %w", err)
	}
	if errs := xhttp.Validate(ctx, &m); len(errs) > 0 {
		h.metrics.RecordError("consumer_validate")
		return fmt.Errorf("%w: %s %s", domrepo.ErrValidation, errs[0].Field, errs[0].Message)
	}

	inserted, err := h.ingestor.Ingest(ctx, m.TenantID, m.Candles, m.IdempotencyKey)
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.l.Debug("candle batch consumed",
		logger.String("tenant_id", m.TenantID),
		logger.Int64("inserted", inserted))
	return nil
}

// KafkaSignalArchiveHandler copies signal events into the analytical archive.
type KafkaSignalArchiveHandler struct {
	topic   string
	archive domrepo.SignalArchive
	metrics domrepo.Metrics
}

func NewKafkaSignalArchiveHandler(topic string, archive domrepo.SignalArchive, metrics domrepo.Metrics) *KafkaSignalArchiveHandler {
	return &KafkaSignalArchiveHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaSignalArchiveHandler) Topic() string { return h.topic }

func (h *KafkaSignalArchiveHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SignalEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode signal event: %w", err)
	}
	if ev.Signal.ID == "" || ev.Signal.TenantID == "" {
		h.metrics.RecordError("consumer_validate")
		return fmt.Errorf("%w: signal event without id or tenant", domrepo.ErrValidation)
	}

	// E2E latency from signal creation to archive
	h.metrics.RecordLatency("signal_archive_lag", time.Since(ev.Signal.CreatedAt).Seconds())

	start := time.Now()
	err := h.archive.Store(ctx, ev)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var (
	_ pkgkafka.MessageHandler = (*KafkaCandlesHandler)(nil)
	_ pkgkafka.MessageHandler = (*KafkaSignalArchiveHandler)(nil)
)
