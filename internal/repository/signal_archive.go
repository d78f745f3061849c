package repository

import (
	"context"
	"fmt"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	pkgch "github.com/kumbhanChoksi/Signals-Backend/pkg/clickhouse"
)

// ArchiveSchema is the ClickHouse DDL for the signal archive. Replays of the
// same signal collapse on merge.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS signals_archive (
		signal_id  String,
		job_id     String,
		tenant_id  String,
		symbol     LowCardinality(String),
		timeframe  LowCardinality(String),
		output     LowCardinality(String),
		confidence Float64,
		ema_fast   Float64,
		ema_slow   Float64,
		atr        Float64,
		trend      LowCardinality(String),
		vetoes     Array(String),
		summary    String,
		created_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree
	ORDER BY (tenant_id, created_at, signal_id)`,
}

// ClickHouseSignalArchive keeps an analytical copy of every signal.
type ClickHouseSignalArchive struct {
	ch *pkgch.Client
}

func NewClickHouseSignalArchive(ch *pkgch.Client) *ClickHouseSignalArchive {
	return &ClickHouseSignalArchive{ch: ch}
}

// Init creates the archive table.
func (a *ClickHouseSignalArchive) Init(ctx context.Context) error {
	return a.ch.InitSchema(ctx, ArchiveSchema)
}

func (a *ClickHouseSignalArchive) Store(ctx context.Context, event models.SignalEvent) error {
	s := event.Signal
	vetoes := s.Vetoes
	if vetoes == nil {
		vetoes = []string{}
	}
	_, err := a.ch.DB().ExecContext(ctx, `INSERT INTO signals_archive
		(signal_id, job_id, tenant_id, symbol, timeframe, output, confidence, ema_fast, ema_slow, atr, trend, vetoes, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.JobID, s.TenantID, event.Symbol, event.Timeframe, string(s.Output), s.Confidence,
		s.Features.EMAFast, s.Features.EMASlow, s.Features.ATR, string(s.Features.Trend),
		vetoes, s.Summary, s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive signal %s: %w", s.ID, err)
	}
	return nil
}
